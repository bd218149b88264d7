package config

// Default configuration values.
const (
	DefaultGraphPath   = "graph.json"
	DefaultConcurrency = 4
	DefaultOutput      = "table"
)

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.GraphPath == "" {
		c.GraphPath = DefaultGraphPath
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	for id, cc := range c.Customers {
		if cc.Type == "postgres" && cc.Port == 0 {
			cc.Port = 5432
			c.Customers[id] = cc
		}
	}
}
