package pipeline

// Stage error kinds, one per pipeline stage. The command entry point
// matches on these to log a tailored message and pick the exit code.

// ConfigError marks a run that failed before doing any work because of
// missing or invalid configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// TransformError marks a batch that could not be normalized. No partial
// table is produced.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string { return "transformation error: " + e.Err.Error() }
func (e *TransformError) Unwrap() error { return e.Err }

// LoadError marks a failed partition purge or table write. Partitions
// purged before the failure are left empty.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load error: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }
