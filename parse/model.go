package parse

// Shapes of the embedded rule table (rules.yaml).
type (
	ruleSetModel struct {
		Institutions []institutionModel `yaml:"institutions"`
	}
	institutionModel struct {
		Name        string           `yaml:"name"`
		Aliases     []string         `yaml:"aliases"`
		Unsupported bool             `yaml:"unsupported"` // page layout the tool cannot parse
		Rule        ruleModel        `yaml:"rule"`
		Pagination  *paginationModel `yaml:"pagination"`
	}
	ruleModel struct {
		Kind       Kind   `yaml:"kind"`
		Scope      string `yaml:"scope"`
		HeadingTag string `yaml:"heading_tag"` // regexp on the element name
		MatchTag   string `yaml:"match_tag"`   // CSS selector
		Column     int    `yaml:"column"`
		Anchor     bool   `yaml:"anchor"`
		Listing    string `yaml:"listing"` // CSS selector
		BaseURL    string `yaml:"base_url"`
		TitleXPath string `yaml:"title_xpath"`
		FirstText  bool   `yaml:"first_text"`
	}
	paginationModel struct {
		Next string `yaml:"next"` // CSS selector
	}
)
