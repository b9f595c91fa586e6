package identify

// Match is one candidate diagnosis for a submitted photograph.
type Match struct {
	Name           string   `json:"name"`
	ScientificName string   `json:"scientific_name,omitempty"`
	Confidence     float64  `json:"confidence"`
	Category       string   `json:"category"`
	Description    string   `json:"description,omitempty"`
	Symptoms       []string `json:"symptoms,omitempty"`
	Images         []string `json:"images,omitempty"`
}

// Treatment is one recommended intervention for a diagnosed issue.
type Treatment struct {
	Method      string `json:"method"`
	Treatment   string `json:"treatment"`
	Application string `json:"application,omitempty"`
	Timing      string `json:"timing,omitempty"`
	SafetyNotes string `json:"safety_notes,omitempty"`
}

// ExpertResource points the grower at a human who can confirm a diagnosis.
type ExpertResource struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
}

// Confidence levels reported alongside a set of matches.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Report is the full identification result returned to the caller.
type Report struct {
	Matches         []Match          `json:"matches"`
	Treatments      []Treatment      `json:"treatments"`
	PreventionTips  []string         `json:"prevention_tips"`
	ExpertResources []ExpertResource `json:"expert_resources"`
	ConfidenceLevel string           `json:"confidence_level"`
	Source          string           `json:"api_source"`

	// FallbackMode marks a degraded report produced without the primary
	// diagnostic model. Degraded reports are never cached.
	FallbackMode bool   `json:"fallback_mode,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Request describes one identification call.
type Request struct {
	// Image is the original photograph as captured; the pipeline optimizes
	// a copy before sending and keys its cache on these original bytes.
	Image    []byte `json:"-"`
	CropType string `json:"crop_type,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"additional_info,omitempty"`
}

// errorBody is the service's error response contract.
type errorBody struct {
	ErrorType         string   `json:"error_type"`
	Message           string   `json:"message"`
	Suggestions       []string `json:"suggestions,omitempty"`
	FallbackAvailable bool     `json:"fallback_available"`
	RetryAfterMillis  int64    `json:"retry_after_ms,omitempty"`
}

// confidenceLevel derives an overall level from the strongest match.
func confidenceLevel(matches []Match) string {
	top := 0.0
	for _, m := range matches {
		if m.Confidence > top {
			top = m.Confidence
		}
	}
	switch {
	case top >= 0.8:
		return ConfidenceHigh
	case top >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// fillDefaults completes a sparse report so callers always receive
// actionable guidance, mirroring the service-side enrichment.
func (r *Report) fillDefaults() {
	if r.ConfidenceLevel == "" {
		r.ConfidenceLevel = confidenceLevel(r.Matches)
	}
	if len(r.PreventionTips) == 0 {
		r.PreventionTips = defaultPreventionTips()
	}
	if len(r.Treatments) == 0 {
		r.Treatments = defaultTreatments()
	}
	if len(r.ExpertResources) == 0 {
		r.ExpertResources = defaultExpertResources()
	}
}

func defaultPreventionTips() []string {
	return []string{
		"Monitor plants regularly for early detection of issues",
		"Maintain proper plant spacing for good air circulation",
		"Water at soil level to avoid wetting leaves",
		"Remove and dispose of affected plant material properly",
		"Practice crop rotation to break disease cycles",
	}
}

func defaultTreatments() []Treatment {
	return []Treatment{
		{
			Method:      "cultural",
			Treatment:   "Improve plant care practices",
			Application: "Ensure proper watering, lighting, and nutrition",
			Timing:      "Ongoing",
			SafetyNotes: "Monitor plant response to changes",
		},
		{
			Method:      "organic",
			Treatment:   "Neem oil or horticultural soap",
			Application: "Spray according to product instructions",
			Timing:      "Early morning or evening",
			SafetyNotes: "Test on small area first",
		},
	}
}

func defaultExpertResources() []ExpertResource {
	return []ExpertResource{
		{
			Name:     "Local Agricultural Extension Service",
			Contact:  "Contact your local county extension office",
			Type:     "extension_service",
			Location: "Local",
		},
		{
			Name:     "Plant Disease Diagnostic Lab",
			Contact:  "Submit samples to your state's plant diagnostic laboratory",
			Type:     "university",
			Location: "State University",
		},
		{
			Name:     "Certified Crop Advisor",
			Contact:  "Find a CCA through the American Society of Agronomy",
			Type:     "consultant",
			Location: "Regional",
		},
	}
}
