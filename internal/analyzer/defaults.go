package analyzer

// DefaultUnits returns the built-in analyzer set in reporting order.
func DefaultUnits() []Unit {
	return []Unit{
		NewPerformanceUnit(),
		NewConversionUnit(),
		NewSEOUnit(),
		NewMobileUnit(),
		NewPricingUnit(),
		NewAISearchUnit(),
		NewCompetitorUnit(),
	}
}

// NewDefaultRegistry registers DefaultUnits.
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultUnits()...)
}
