package steps

// Builtins returns the steps shipped with seqflow.
func Builtins() []Step {
	return []Step{
		NewRenderTemplatesStep(),
		NewMetricsReportStep(),
		NewRunCommandStep(),
	}
}

// RegisterBuiltins adds every built-in step to r.
func RegisterBuiltins(r *Registry) error {
	for _, s := range Builtins() {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
