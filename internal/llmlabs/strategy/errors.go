package strategy

// ConfigError reports a missing or invalid model configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// DataError reports that a strategy was asked to train without any data.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return e.Reason
}
