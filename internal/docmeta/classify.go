package docmeta

import "strings"

// classPreviewLen bounds how much of the document body participates in
// classification; titles plus the opening lines carry the signal.
const classPreviewLen = 500

// regulatoryKeywords maps each class to the phrases that indicate it.
// Order matters: the first class with any match wins.
var regulatoryKeywords = []struct {
	class    RegulatoryClass
	keywords []string
}{
	{ClassPolicy, []string{
		"monetary policy", "fiscal policy", "tax policy", "regulation",
	}},
	{ClassReport, []string{
		"annual report", "quarterly report", "financial stability",
		"economic survey", "statistical bulletin",
	}},
	{ClassNotice, []string{
		"public notice", "circular", "gazette", "press release",
	}},
	{ClassGuideline, []string{
		"guideline", "manual", "procedure", "framework", "rules",
	}},
	{ClassData, []string{
		"statistics", "data", "indices", "rates", "survey results",
	}},
	{ClassEducation, []string{
		"financial literacy", "how to", "guide", "tips", "lesson",
		"tutorial", "workshop", "training", "learn", "beginner",
	}},
	{ClassNews, []string{
		"news", "article", "update", "breaking", "opinion", "analysis",
		"commentary", "editorial", "market review", "weekly brief",
	}},
	{ClassProductInfo, []string{
		"product", "account", "loan", "savings", "insurance",
		"tariff", "charges", "fees", "interest rate", "terms",
	}},
}

// ClassifyDocument assigns a regulatory class from keyword rules over the
// title and a preview of the body. Returns ClassOther when nothing matches.
func ClassifyDocument(title, preview string) RegulatoryClass {
	if len(preview) > classPreviewLen {
		preview = preview[:classPreviewLen]
	}
	combined := strings.ToLower(title + " " + preview)
	for _, entry := range regulatoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(combined, kw) {
				return entry.class
			}
		}
	}
	return ClassOther
}
