package domain

const (
	// DefaultDomain is the short domain used when none is supplied
	DefaultDomain = "bit.ly"
	// DefaultUnit is the analytics time unit used when none is supplied
	DefaultUnit = "day"
	// AllUnits asks the provider for every available time unit
	AllUnits = -1
	// TopCountries caps the geographic breakdown
	TopCountries = 10
)

// Actions reported in structured messages
const (
	ActionShorten   = "shorten"
	ActionAnalytics = "analytics"
)

// Credentials holds the provider secret supplied by the host runtime
type Credentials struct {
	AccessToken string `json:"access_token"`
}

// Params are the tool invocation parameters supplied by the host runtime
type Params struct {
	URLOrBitlink string `json:"url_or_bitlink"`
	Domain       string `json:"domain,omitempty"`
	GroupGUID    string `json:"group_guid,omitempty"`
	Title        string `json:"title,omitempty"`
	Unit         string `json:"unit,omitempty"`
	Units        *int   `json:"units,omitempty"`
}

// WithDefaults returns a copy of p with unset optional fields filled in
func (p Params) WithDefaults() Params {
	if p.Domain == "" {
		p.Domain = DefaultDomain
	}
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
	if p.Units == nil {
		units := AllUnits
		p.Units = &units
	}
	return p
}

// ShortenRequest is the body sent to the shorten endpoint
type ShortenRequest struct {
	LongURL   string `json:"long_url"`
	Domain    string `json:"domain"`
	GroupGUID string `json:"group_guid,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Bitlink is the subset of the provider's bitlink object we surface
type Bitlink struct {
	Link      *string `json:"link"`
	ID        *string `json:"id"`
	LongURL   *string `json:"long_url"`
	CreatedAt *string `json:"created_at"`
	Title     *string `json:"title"`
	Archived  *bool   `json:"archived"`
}

// ShortenResult is the structured output of the shorten action.
// Fields missing from the provider response render as null.
type ShortenResult struct {
	Action       string  `json:"action"`
	ShortenedURL *string `json:"shortened_url"`
	ID           *string `json:"id"`
	LongURL      *string `json:"long_url"`
	CreatedAt    *string `json:"created_at"`
	Title        *string `json:"title"`
	Archived     *bool   `json:"archived"`
}

// NewShortenResult projects a provider bitlink into a ShortenResult
func NewShortenResult(b *Bitlink) *ShortenResult {
	return &ShortenResult{
		Action:       ActionShorten,
		ShortenedURL: b.Link,
		ID:           b.ID,
		LongURL:      b.LongURL,
		CreatedAt:    b.CreatedAt,
		Title:        b.Title,
		Archived:     b.Archived,
	}
}

// AnalyticsRequest identifies a bitlink and the time window to report on
type AnalyticsRequest struct {
	Bitlink string
	Unit    string
	Units   int
}

// ClickSummary is the provider's click summary payload
type ClickSummary struct {
	TotalClicks   *int    `json:"total_clicks"`
	Unit          *string `json:"unit"`
	Units         *int    `json:"units"`
	UnitReference *string `json:"unit_reference"`
}

// CountryMetric is one entry of the provider's country breakdown
type CountryMetric struct {
	Value  string `json:"value"`
	Clicks int    `json:"clicks"`
}

// CountryMetrics is the provider's country breakdown payload
type CountryMetrics struct {
	Metrics []CountryMetric `json:"metrics"`
}

// CountryClicks is one row of the geographic distribution
type CountryClicks struct {
	Country string `json:"country"`
	Clicks  int    `json:"clicks"`
}

// AnalyticsResult is the structured output of the analytics action
type AnalyticsResult struct {
	Action                 string          `json:"action"`
	Bitlink                string          `json:"bitlink"`
	TotalClicks            int             `json:"total_clicks"`
	TimeUnit               string          `json:"time_unit"`
	TimeUnits              int             `json:"time_units"`
	UnitReference          *string         `json:"unit_reference"`
	GeographicDistribution []CountryClicks `json:"geographic_distribution"`
}

// NewAnalyticsResult merges a click summary with the request it answered.
// Values the provider omits fall back to the requested ones.
func NewAnalyticsResult(req AnalyticsRequest, summary *ClickSummary) *AnalyticsResult {
	result := &AnalyticsResult{
		Action:                 ActionAnalytics,
		Bitlink:                req.Bitlink,
		TimeUnit:               req.Unit,
		TimeUnits:              req.Units,
		UnitReference:          summary.UnitReference,
		GeographicDistribution: []CountryClicks{},
	}
	if summary.TotalClicks != nil {
		result.TotalClicks = *summary.TotalClicks
	}
	if summary.Unit != nil {
		result.TimeUnit = *summary.Unit
	}
	if summary.Units != nil {
		result.TimeUnits = *summary.Units
	}
	return result
}

// SetCountries fills the geographic distribution, keeping provider order
func (r *AnalyticsResult) SetCountries(metrics []CountryMetric) {
	dist := make([]CountryClicks, 0, len(metrics))
	for _, m := range metrics {
		dist = append(dist, CountryClicks{Country: m.Value, Clicks: m.Clicks})
	}
	r.GeographicDistribution = dist
}
