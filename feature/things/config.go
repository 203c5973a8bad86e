package things

// Config holds configuration for the things feature.
type Config struct {
	// Enabled exposes the HTTP routes.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// AutoMigrate creates or extends the things table when columns are missing.
	AutoMigrate bool `mapstructure:"auto_migrate" default:"true"`
	// SourceObject is the storage object the sync command reads by default.
	SourceObject string `mapstructure:"source_object" default:"things/source.json"`
	// ReportPrefix is where the sync command writes plan reports.
	ReportPrefix string `mapstructure:"report_prefix" default:"things/reports"`
}
