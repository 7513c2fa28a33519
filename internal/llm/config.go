// Package llm provides the generative-model client abstraction and the resilient call engine
// used to run prompts against it.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap, fast calls
	TierLite ModelTier = "lite"
	// TierStandard is the default tier for resume extraction and tailoring
	TierStandard ModelTier = "standard"
	// TierAdvanced is for callers that want a stronger model
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultStandardModel is the Gemini model targeted when nothing else is configured.
const DefaultStandardModel = "gemini-3-flash-preview"

// Generation holds sampling settings applied to every request. Zero values keep the
// provider defaults.
type Generation struct {
	Temperature     *float32
	MaxOutputTokens int32
	// JSONResponse asks the provider for an application/json body. Output still goes
	// through fence stripping, so models that ignore it keep working.
	JSONResponse bool
}

// Config holds the model configuration for the application
type Config struct {
	Provider   Provider
	Models     map[ModelTier]string
	Generation Generation
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: DefaultStandardModel,
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := c.clone()
	newConfig.Models[tier] = model
	return newConfig
}

// WithGeneration returns a new Config using the given sampling settings
func (c *Config) WithGeneration(g Generation) *Config {
	newConfig := c.clone()
	newConfig.Generation = g
	return newConfig
}

func (c *Config) clone() *Config {
	newConfig := &Config{
		Provider:   c.Provider,
		Models:     make(map[ModelTier]string, len(c.Models)+1),
		Generation: c.Generation,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	return newConfig
}
