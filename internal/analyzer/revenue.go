package analyzer

import (
	"math"
	"strings"
)

// IndustryProfile is the traffic baseline used to price an issue.
type IndustryProfile struct {
	MonthlyVisitors   float64
	ConversionRate    float64 // fraction of visitors who convert
	AverageOrderValue float64 // dollars per conversion
}

var defaultProfile = IndustryProfile{MonthlyVisitors: 10000, ConversionRate: 0.02, AverageOrderValue: 100}

var industryProfiles = map[string]IndustryProfile{
	"saas":       {MonthlyVisitors: 15000, ConversionRate: 0.03, AverageOrderValue: 250},
	"ecommerce":  {MonthlyVisitors: 30000, ConversionRate: 0.025, AverageOrderValue: 85},
	"b2b":        {MonthlyVisitors: 8000, ConversionRate: 0.015, AverageOrderValue: 1200},
	"agency":     {MonthlyVisitors: 5000, ConversionRate: 0.02, AverageOrderValue: 2500},
	"healthcare": {MonthlyVisitors: 12000, ConversionRate: 0.04, AverageOrderValue: 150},
	"finance":    {MonthlyVisitors: 20000, ConversionRate: 0.01, AverageOrderValue: 600},
	"education":  {MonthlyVisitors: 18000, ConversionRate: 0.02, AverageOrderValue: 300},
}

// ProfileFor returns the profile for an industry hint, or the default.
func ProfileFor(industry string) IndustryProfile {
	if p, ok := industryProfiles[strings.ToLower(strings.TrimSpace(industry))]; ok {
		return p
	}
	return defaultProfile
}

// MonthlyRevenue is the baseline monthly revenue of the profile.
func (p IndustryProfile) MonthlyRevenue() float64 {
	return p.MonthlyVisitors * p.ConversionRate * p.AverageOrderValue
}

// RevenueImpact prices a conversion loss as a fraction of baseline monthly
// revenue. The result is rounded to whole dollars and never negative.
func RevenueImpact(industry string, lostFraction float64) float64 {
	if lostFraction <= 0 || math.IsNaN(lostFraction) {
		return 0
	}
	lostFraction = math.Min(lostFraction, 1)
	return math.Round(ProfileFor(industry).MonthlyRevenue() * lostFraction)
}
