package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/internal/scorepolicy"
)

// policyCmd represents the policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the scoring policy",
	Long: `Shows or hashes a scoring policy.

Every score row records the hash of the policy that produced it, so
hashing a candidate file tells you whether stored rows came from that
rulebook before you overwrite anything.

Without --file the built-in policy is used.

Example:
  go run ./cmd/fundlens policy show
  go run ./cmd/fundlens policy hash
  go run ./cmd/fundlens policy hash --file configs/policy.yaml`,
}

var (
	policyShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the resolved policy as YAML",
		RunE:  runPolicyShow,
	}

	policyHashCmd = &cobra.Command{
		Use:   "hash",
		Short: "Print the policy hash",
		RunE:  runPolicyHash,
	}
)

var policyFile string

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyHashCmd)

	policyCmd.PersistentFlags().StringVar(&policyFile, "file", "", "policy YAML file (default: built-in policy)")
}

func loadPolicy() (*scorepolicy.Policy, error) {
	p, err := scorepolicy.LoadOrDefault(policyFile)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return p, nil
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	p, err := loadPolicy()
	if err != nil {
		return err
	}

	hash, err := scorepolicy.Hash(p)
	if err != nil {
		return fmt.Errorf("hash policy: %w", err)
	}

	out, err := scorepolicy.MarshalYAML(p)
	if err != nil {
		return fmt.Errorf("render policy: %w", err)
	}

	fmt.Printf("# version: %s\n", p.Meta.Version)
	fmt.Printf("# hash: %s\n\n", hash)
	fmt.Print(string(out))
	return nil
}

func runPolicyHash(cmd *cobra.Command, args []string) error {
	p, err := loadPolicy()
	if err != nil {
		return err
	}

	hash, err := scorepolicy.Hash(p)
	if err != nil {
		return fmt.Errorf("hash policy: %w", err)
	}

	fmt.Println(hash)
	return nil
}
