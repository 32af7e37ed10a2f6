package domain

// On-disk domain policy
type Policy struct {
	AppDomainMax *uint32 `yaml:"appDomainMax,omitempty"` // highest domain an application record may carry
	Ranges       []Range `yaml:"ranges,omitempty"`       // accepted domain ranges for non-application records
	Domains      []Entry `yaml:"domains,omitempty"`      // registered domains, empty accepts any domain in range
}

// Inclusive domain range
type Range struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// Registered domain. An ID whose low byte is 0xFF covers every sub-domain.
type Entry struct {
	ID    uint32 `yaml:"id"`
	Name  string `yaml:"name,omitempty"`
	Quota int    `yaml:"quota,omitempty"` // per-window flow control ceiling override
}

// Immutable decision table built from a Policy
type Validator struct {
	appDomainMax uint32
	ranges       []Range
	exact        map[uint32]Entry
	wildcard     map[uint32]Entry // keyed by domain with sub-domain byte cleared
}
