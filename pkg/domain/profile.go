package domain

// Profile describes the user the fortune is read for.
type Profile struct {
	Name      string `json:"name" yaml:"name" mapstructure:"name"`
	BirthDate string `json:"birth_date,omitempty" yaml:"birth_date" mapstructure:"birth_date"`
	BirthTime string `json:"birth_time,omitempty" yaml:"birth_time" mapstructure:"birth_time"`
	Gender    string `json:"gender,omitempty" yaml:"gender" mapstructure:"gender"`
	Calendar  string `json:"calendar,omitempty" yaml:"calendar" mapstructure:"calendar"` // "solar" | "lunar"
}
