package schema

// Configuration is the root of weave.yaml.
type Configuration struct {
	BasePath string   `yaml:"base_path,omitempty" json:"base_path,omitempty" mapstructure:"base_path"`
	Logs     Logs     `yaml:"logs,omitempty" json:"logs,omitempty" mapstructure:"logs"`
	Settings Settings `yaml:"settings,omitempty" json:"settings,omitempty" mapstructure:"settings"`
	// CliConfigPath is the absolute path of the loaded config file, if any.
	CliConfigPath string `yaml:"-" json:"-" mapstructure:"-"`
}

type Logs struct {
	File  string `yaml:"file" json:"file" mapstructure:"file"`
	Level string `yaml:"level" json:"level" mapstructure:"level"`
}

// Settings groups everything the assembly pipeline reads at run time.
type Settings struct {
	Character  Character                  `yaml:"character,omitempty" json:"character,omitempty" mapstructure:"character"`
	UserName   string                     `yaml:"user_name,omitempty" json:"user_name,omitempty" mapstructure:"user_name"`
	Providers  map[string]*ProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty" mapstructure:"providers"`
	Retrieval  RetrievalSettings          `yaml:"retrieval,omitempty" json:"retrieval,omitempty" mapstructure:"retrieval"`
	Lore       LoreSettings               `yaml:"lore,omitempty" json:"lore,omitempty" mapstructure:"lore"`
	Transcript TranscriptSettings         `yaml:"transcript,omitempty" json:"transcript,omitempty" mapstructure:"transcript"`
}

// Character holds the character card fields exposed to templates.
type Character struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" mapstructure:"description"`
	Personality string `yaml:"personality,omitempty" json:"personality,omitempty" mapstructure:"personality"`
	Scenario    string `yaml:"scenario,omitempty" json:"scenario,omitempty" mapstructure:"scenario"`
}

type LoreSettings struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`
	// MaxContextSize is the token budget shared by the before and after blocks.
	MaxContextSize int `yaml:"max_context_size,omitempty" json:"max_context_size,omitempty" mapstructure:"max_context_size"`
	// ScanDepth is how many of the newest messages are scanned for keys.
	ScanDepth int    `yaml:"scan_depth,omitempty" json:"scan_depth,omitempty" mapstructure:"scan_depth"`
	Encoding  string `yaml:"encoding,omitempty" json:"encoding,omitempty" mapstructure:"encoding"`
}

type TranscriptSettings struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`
}
