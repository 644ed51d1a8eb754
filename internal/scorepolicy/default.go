package scorepolicy

// Default returns the shipped v1 policy. It is the exact rulebook the
// platform has been publishing scores under; custom YAML policies are
// validated against the same structural rules.
//
// Component ceilings: returns 40, risk 30, fundamentals 20, other 10.
// The six return horizons can earn up to 48 points before the clamp;
// the clamp to 40 is intentional, a fund does not need all six windows
// at the top tier to max the component.
func Default() *Policy {
	return &Policy{
		Meta: Meta{
			PolicyID: "mf-scoring-in",
			Version:  "1.0.0",
		},

		Returns: Returns{
			MinObservations: 90,
			Horizons: []Horizon{
				{Name: "3m", Days: 91, ToleranceDays: 15, MinObservations: 60},
				{Name: "6m", Days: 182, ToleranceDays: 15, MinObservations: 120},
				{Name: "1y", Days: 365, ToleranceDays: 20, MinObservations: 252},
				{Name: "3y", Days: 1095, ToleranceDays: 30, MinObservations: 756},
				{Name: "5y", Days: 1825, ToleranceDays: 30, MinObservations: 1260},
				{Name: "ytd", Days: 0, ToleranceDays: 10, MinObservations: 40},
			},
			Tiers: []FloorTier{
				{Min: 15.0, Points: 8.0},
				{Min: 12.0, Points: 6.4},
				{Min: 8.0, Points: 4.8},
				{Min: 5.0, Points: 3.2},
				{Min: 0.0, Points: 1.6},
			},
			NegativeSlope: 0.05,
			NegativeFloor: -0.5,
			Bound:         Bound{Min: 0, Max: 40},
		},

		Risk: Risk{
			MinReturnObservations: 60,
			OutlierGuard:          0.20,
			TradingDays:           252,
			VolatilityFloorPct:    0.5,
			DrawdownCap:           0.75,
			SharpeClamp:           10,
			RiskFreeRate:          0.06,

			VolatilityTiers: CeilingTable{
				Tiers: []CeilingTier{
					{Max: 10.0, Points: 8.0},
					{Max: 15.0, Points: 6.5},
					{Max: 20.0, Points: 5.0},
					{Max: 25.0, Points: 3.5},
					{Max: 30.0, Points: 2.0},
				},
				FloorPoints: 0.5,
			},
			DrawdownTiers: CeilingTable{
				Tiers: []CeilingTier{
					{Max: 0.05, Points: 8.0},
					{Max: 0.10, Points: 6.5},
					{Max: 0.20, Points: 5.0},
					{Max: 0.30, Points: 3.5},
					{Max: 0.40, Points: 2.0},
				},
				FloorPoints: 0.5,
			},
			SharpeTiers: FloorTable{
				Tiers: []FloorTier{
					{Min: 2.0, Points: 8.0},
					{Min: 1.5, Points: 6.5},
					{Min: 1.0, Points: 5.0},
					{Min: 0.5, Points: 3.5},
					{Min: 0.0, Points: 2.0},
				},
				FloorPoints: 0.5,
			},
			DownsideVolTiers: CeilingTable{
				Tiers: []CeilingTier{
					{Max: 6.0, Points: 6.0},
					{Max: 10.0, Points: 4.5},
					{Max: 15.0, Points: 3.0},
					{Max: 20.0, Points: 1.5},
				},
				FloorPoints: 0.5,
			},
			CaptureTiers: FloorTable{
				Tiers: []FloorTier{
					{Min: 1.5, Points: 6.0},
					{Min: 1.2, Points: 4.5},
					{Min: 1.0, Points: 3.0},
					{Min: 0.8, Points: 1.5},
				},
				FloorPoints: 0.5,
			},
			HistoryDepthTiers: FloorTable{
				Tiers: []FloorTier{
					{Min: 1260, Points: 4.0},
					{Min: 756, Points: 3.0},
					{Min: 504, Points: 2.0},
					{Min: 252, Points: 1.0},
				},
				FloorPoints: 0.5,
			},

			Bound:             Bound{Min: 0, Max: 30},
			OtherMetricsBound: Bound{Min: 0, Max: 10},
		},

		Fundamentals: Fundamentals{
			ExpenseTables: map[string]CeilingTable{
				"Equity": {
					Tiers: []CeilingTier{
						{Max: 0.50, Points: 8.0},
						{Max: 1.00, Points: 6.5},
						{Max: 1.50, Points: 5.0},
						{Max: 2.00, Points: 3.5},
						{Max: 2.50, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
				"Debt": {
					Tiers: []CeilingTier{
						{Max: 0.25, Points: 8.0},
						{Max: 0.50, Points: 6.5},
						{Max: 0.75, Points: 5.0},
						{Max: 1.00, Points: 3.5},
						{Max: 1.50, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
				"Hybrid": {
					Tiers: []CeilingTier{
						{Max: 0.40, Points: 8.0},
						{Max: 0.80, Points: 6.5},
						{Max: 1.25, Points: 5.0},
						{Max: 1.75, Points: 3.5},
						{Max: 2.25, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
				"default": {
					Tiers: []CeilingTier{
						{Max: 0.50, Points: 8.0},
						{Max: 1.00, Points: 6.5},
						{Max: 1.50, Points: 5.0},
						{Max: 2.00, Points: 3.5},
						{Max: 2.50, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
			},

			// AUM in crores. Equity and hybrid funds have a sweet spot:
			// tiny funds carry survival risk, giant ones move their own
			// market. Debt, dominated by liquid schemes, rewards scale
			// outright.
			AumTables: map[string]BandTable{
				"Equity": {
					Bands: []Band{
						{Min: 1000, Max: 25000, Points: 8.0},
						{Min: 500, Max: 1000, Points: 6.5},
						{Min: 25000, Max: 50000, Points: 6.5},
						{Min: 100, Max: 500, Points: 5.0},
						{Min: 50000, Points: 5.0},
						{Min: 50, Max: 100, Points: 3.5},
						{Min: 10, Max: 50, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
				"Debt": {
					Bands: []Band{
						{Min: 25000, Points: 8.0},
						{Min: 5000, Max: 25000, Points: 6.5},
						{Min: 1000, Max: 5000, Points: 5.0},
						{Min: 250, Max: 1000, Points: 3.5},
						{Min: 50, Max: 250, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
				"Hybrid": {
					Bands: []Band{
						{Min: 500, Max: 20000, Points: 8.0},
						{Min: 100, Max: 500, Points: 6.0},
						{Min: 20000, Points: 6.0},
						{Min: 50, Max: 100, Points: 4.0},
						{Min: 10, Max: 50, Points: 2.0},
					},
					FloorPoints: 1.0,
				},
				"default": {
					Bands: []Band{
						{Min: 500, Max: 25000, Points: 8.0},
						{Min: 100, Max: 500, Points: 6.0},
						{Min: 25000, Points: 6.0},
						{Min: 10, Max: 100, Points: 3.5},
					},
					FloorPoints: 1.0,
				},
			},

			AgeTiers: FloorTable{
				Tiers: []FloorTier{
					{Min: 10, Points: 4.0},
					{Min: 5, Points: 3.0},
					{Min: 3, Points: 2.0},
					{Min: 1, Points: 1.0},
				},
				FloorPoints: 0.5,
			},

			Defaults: FundamentalsDefaults{
				ExpensePoints: 4.0,
				AumPoints:     4.0,
				AgePoints:     2.0,
			},

			Bound: Bound{Min: 0, Max: 20},
		},

		Composite: Composite{
			Bound: Bound{Min: 0, Max: 100},
		},

		Ranking: Ranking{
			MinPeerGroup: 8,
			QuartileQ1:   75,
			QuartileQ2:   50,
			QuartileQ3:   25,
		},

		Recommendation: RecommendationRules{
			StrongBuy: RecRule{MinTotal: 70, MaxQuartile: 1},
			Buy:       RecRule{MinTotal: 60, MaxQuartile: 2},
			Hold:      RecRule{MinTotal: 40},
			Sell:      RecRule{MinTotal: 25},
			Unranked: UnrankedRules{
				BuyMinTotal:  70,
				HoldMinTotal: 50,
				SellMinTotal: 35,
			},
		},
	}
}
