package eventmodels

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DataSourceType string

const (
	DataSourceCSV     DataSourceType = "csv"
	DataSourcePolygon DataSourceType = "polygon"
)

type ServerConfigYAML struct {
	Port              string  `yaml:"port"`
	EvaluateRateLimit float64 `yaml:"evaluate_rate_limit"`
	EvaluateBurst     int     `yaml:"evaluate_burst"`
}

type DataSourceConfigYAML struct {
	Type        DataSourceType `yaml:"type"`
	CSVFilename string         `yaml:"csv_filename"`
	Symbol      string         `yaml:"symbol"`
	Multiplier  int            `yaml:"multiplier"`
	Timespan    string         `yaml:"timespan"`
	From        string         `yaml:"from"`
	To          string         `yaml:"to"`
}

type EvaluationConfigYAML struct {
	Mode   string `yaml:"mode"`
	Window int    `yaml:"window"`
}

type AccountConfigYAML struct {
	StartingBalance float64 `yaml:"starting_balance"`
}

type LogConfigYAML struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SimulatorConfigYAML struct {
	Server      ServerConfigYAML     `yaml:"server"`
	DataSource  DataSourceConfigYAML `yaml:"data_source"`
	Evaluation  EvaluationConfigYAML `yaml:"evaluation"`
	Account     AccountConfigYAML    `yaml:"account"`
	Log         LogConfigYAML        `yaml:"log"`
	HistorySize int                  `yaml:"history_size"`
}

// LoadSimulatorConfig reads the YAML file at path (a missing file yields defaults), then
// applies environment overrides.
func LoadSimulatorConfig(path string) (*SimulatorConfigYAML, error) {
	cfg := &SimulatorConfigYAML{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("LoadSimulatorConfig: read %q: %w", path, err)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("LoadSimulatorConfig: parse %q: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	return cfg, nil
}

func (c *SimulatorConfigYAML) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("CHART_CSV"); v != "" {
		c.DataSource.Type = DataSourceCSV
		c.DataSource.CSVFilename = v
	}
	if v := os.Getenv("EVALUATION_MODE"); v != "" {
		c.Evaluation.Mode = v
	}
	if v := os.Getenv("STARTING_BALANCE"); v != "" {
		if balance, err := strconv.ParseFloat(v, 64); err == nil {
			c.Account.StartingBalance = balance
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func (c *SimulatorConfigYAML) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Server.EvaluateBurst <= 0 {
		c.Server.EvaluateBurst = 1
	}
	if c.DataSource.Type == "" {
		c.DataSource.Type = DataSourceCSV
	}
	if c.DataSource.CSVFilename == "" {
		c.DataSource.CSVFilename = "charts_data/chart.csv"
	}
	if c.DataSource.Multiplier <= 0 {
		c.DataSource.Multiplier = 1
	}
	if c.DataSource.Timespan == "" {
		c.DataSource.Timespan = "day"
	}
	if c.Evaluation.Mode == "" {
		c.Evaluation.Mode = "priced"
	}
	if c.Evaluation.Window <= 0 {
		c.Evaluation.Window = 10
	}
	if c.Account.StartingBalance == 0 {
		c.Account.StartingBalance = 1000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 500
	}
}

func (c *SimulatorConfigYAML) Validate() error {
	switch c.DataSource.Type {
	case DataSourceCSV:
		if c.DataSource.CSVFilename == "" {
			return fmt.Errorf("data_source.csv_filename is required")
		}
	case DataSourcePolygon:
		if c.DataSource.Symbol == "" {
			return fmt.Errorf("data_source.symbol is required for polygon")
		}
		if c.DataSource.From == "" || c.DataSource.To == "" {
			return fmt.Errorf("data_source.from and data_source.to are required for polygon")
		}
	default:
		return fmt.Errorf("unknown data_source.type %q", c.DataSource.Type)
	}

	if c.Account.StartingBalance <= 0 {
		return fmt.Errorf("account.starting_balance must be positive")
	}

	if c.Server.EvaluateRateLimit < 0 {
		return fmt.Errorf("server.evaluate_rate_limit cannot be negative")
	}

	return nil
}
