package config

// DefaultKeywords are the role titles a posting must mention to be kept.
var DefaultKeywords = []string{
	"Senior Sales Strategy",
	"Sales Strategy",
	"Sales Operations",
	"Global Sales Operations",
	"Revenue Operations",
	"RevOps",
	"Sales Intelligence",
	"Sales Insights",
	"Sales Insights & Analytics",
	"Sales Enablement",
	"Sales Planning & Operations",
	"Sales Transformation",
	"Go-to-Market Strategy",
	"GTM Strategy",
	"Sales Excellence",
	"Sales Analytics",
	"Market Intelligence",
}

// DefaultBonusTerms each add a small amount to a matching title's score.
var DefaultBonusTerms = []string{
	"revops",
	"revenue operations",
	"strategy",
	"enablement",
	"analytics",
	"intelligence",
	"insights",
	"market intelligence",
	"gtm",
}

// DefaultSites are the ATS hosts searched during discovery.
var DefaultSites = []string{
	"site:boards.greenhouse.io",
	"site:jobs.lever.co",
	"site:ashbyhq.com",
	"site:workable.com",
	"site:myworkdayjobs.com",
	"site:smartrecruiters.com",
	"site:jobs.ashbyhq.com",
}
