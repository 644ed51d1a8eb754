package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/pkg/config"
	"github.com/adivish/fundlens/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Test structured logging output",
	Long: `Exercises the structured logger in every configuration.

This command:
- Tests JSON and console output formats
- Tests log levels
- Tests structured field logging
- Tests error context logging

Example:
  go run ./cmd/fundlens test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Logger Test ===")

	// Test 1: JSON Format (Production)
	fmt.Println("1. JSON Format (Production)")
	fmt.Println("--------------------------------")
	testJSONFormat()
	fmt.Println()

	// Test 2: Console Format (Development)
	fmt.Println("2. Console Format (Development)")
	fmt.Println("--------------------------------")
	testConsoleFormat()
	fmt.Println()

	// Test 3: Structured Logging
	fmt.Println("3. Structured Logging with Fields")
	fmt.Println("--------------------------------")
	testStructuredLogging()
	fmt.Println()

	// Test 4: Error Logging
	fmt.Println("4. Error Logging")
	fmt.Println("--------------------------------")
	testErrorLogging()
	fmt.Println()

	fmt.Println("✅ All logger tests completed!")
	return nil
}

func testJSONFormat() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)
	log.Info("Service started")
	log.Warn("High memory usage detected")
	log.Error("Failed to reach Redis, caching disabled")
}

func testConsoleFormat() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "console",
	}

	log := logger.New(cfg)
	log.Debug("Debugging application flow")
	log.Info("Request received from client")
	log.Warn("Cache miss, reading scores from database")
}

func testStructuredLogging() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	// Single field
	fundLog := log.WithField("fund_id", int64(119551))
	fundLog.Info("Fund scored")

	// Multiple fields
	scoreLog := log.WithFields(map[string]interface{}{
		"fund_id":     int64(100377),
		"subcategory": "Mid Cap",
		"total_score": 74.35,
		"quartile":    1,
	})
	scoreLog.Info("Score persisted")

	// Chained fields
	log.WithField("module", "nav-loader").
		WithField("source", "AMFI").
		Info("NAV ingestion started")
}

func testErrorLogging() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	// Simple error
	err := errors.New("connection timeout")
	log.WithError(err).Error("Failed to load NAV history")

	// Error with context
	log.WithError(err).
		WithFields(map[string]interface{}{
			"retry_count": 3,
			"timeout_ms":  5000,
			"fund_id":     int64(119551),
		}).
		Error("Score upsert failed after retries")
}
