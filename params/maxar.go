package params

// MaxarConfig locates the Maxar Open Data catalog.
type MaxarConfig struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`

	// EventsPrefix is the key prefix holding one directory per event.
	EventsPrefix string `mapstructure:"events_prefix"`

	// VisualSuffix is the base name suffix of the RGB visual asset.
	VisualSuffix string `mapstructure:"visual_suffix"`
}

func DefaultMaxarConfig() *MaxarConfig {
	return &MaxarConfig{
		Bucket:       "maxar-opendata",
		Region:       "us-west-2",
		EventsPrefix: "events",
		VisualSuffix: "-visual.tif",
	}
}
