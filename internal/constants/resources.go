package constants

// Resource is a support organization shown to users
type Resource struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
	Website     string `json:"website"`
}

// Resources is the static list of support organizations
var Resources = []Resource{
	{
		Name:        "Substance Abuse and Mental Health Services Administration (SAMHSA)",
		Description: "National helpline for individuals and families facing mental and/or substance use disorders.",
		Contact:     "1-800-662-HELP (4357)",
		Website:     "https://www.samhsa.gov/find-help/national-helpline",
	},
	{
		Name:        "National Institute on Drug Abuse (NIDA)",
		Description: "Leads the nation in bringing the power of science to bear on drug abuse and addiction.",
		Contact:     "301-443-1124",
		Website:     "https://www.drugabuse.gov/",
	},
	{
		Name:        "Alcoholics Anonymous (AA)",
		Description: "An international fellowship of men and women who have had a drinking problem.",
		Contact:     "Find local number on website",
		Website:     "https://www.aa.org/",
	},
	{
		Name:        "Narcotics Anonymous (NA)",
		Description: "A global, community-based organization with a multilingual and multicultural membership.",
		Contact:     "Find local number on website",
		Website:     "https://www.na.org/",
	},
	{
		Name:        "Smokefree.gov",
		Description: "Provides free, accurate, evidence-based information and professional assistance to help support the immediate and long-term needs of people trying to quit smoking.",
		Contact:     "1-800-QUIT-NOW (784-8669)",
		Website:     "https://smokefree.gov/",
	},
}
