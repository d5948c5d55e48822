package config

// DefaultConfigFile is the --config value used when the flag is omitted.
const DefaultConfigFile = "config.yaml"

// Invocation captures the command-line flags of a run so the scheduled
// re-invocation can reproduce them.
type Invocation struct {
	ConfigFile string
	Verbose    bool
}

// Args returns the flags that differ from their defaults, in a stable order.
func (i Invocation) Args() []string {
	var args []string
	if i.ConfigFile != "" && i.ConfigFile != DefaultConfigFile {
		args = append(args, "--config", i.ConfigFile)
	}
	if i.Verbose {
		args = append(args, "--verbose")
	}
	return args
}
