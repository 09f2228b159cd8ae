package tagger

import "github.com/fyrsmithlabs/hazina/internal/docmeta"

// personaRule classifies an audience persona. A single strong keyword is
// high confidence; weak keywords need to accumulate.
type personaRule struct {
	persona string
	strong  []string
	weak    []string
}

// Rules are ordered so multi-persona output is deterministic.
var personaRules = []personaRule{
	{
		persona: "student",
		strong: []string{
			"student loan", "helb", "university fee", "campus",
			"scholarship", "student account", "tuition",
			"higher education loan", "helb repayment", "college fees",
			"bursary", "education fund", "school fees loan",
		},
		weak: []string{
			"student", "university", "college", "young", "graduate",
			"youth", "internship", "first job", "attachment",
		},
	},
	{
		persona: "sme",
		strong: []string{
			"sme loan", "business loan", "msme", "small business",
			"business account", "trade finance", "invoice discounting",
			"lpo financing", "asset finance", "business growth",
			"entrepreneurship", "business plan", "startup capital",
			"biashara", "working capital", "merchant account",
			"business overdraft", "sme banking",
		},
		weak: []string{
			"business", "enterprise", "company", "sme", "entrepreneur",
			"merchant", "supplier", "vendor", "turnover tax",
		},
	},
	{
		persona: "farmer",
		strong: []string{
			"agricultural finance", "farm loan", "crop insurance",
			"agricultural insurance", "farming", "agribusiness",
			"dairy loan", "livestock", "horticulture",
			"farm input", "agricultural value chain",
			"kilimo", "shamba", "cooperative society",
			"tea bonus", "coffee cooperative",
		},
		weak: []string{
			"agriculture", "farm", "crop", "harvest", "rural",
			"cooperative", "agrochemical",
		},
	},
	{
		persona: "salaried",
		strong: []string{
			"paye", "salary advance", "payroll", "check-off",
			"salary account", "pension", "nssf contribution",
			"nhif", "gratuity", "staff loan", "employment benefits",
			"retirement planning", "provident fund",
			"pay as you earn", "employer deduction",
		},
		weak: []string{
			"salary", "employed", "employee", "employer", "payslip",
			"monthly income", "deductions", "net pay",
		},
	},
	{
		persona: "gig_worker",
		strong: []string{
			"freelance", "gig economy", "digital worker",
			"online income", "platform worker", "content creator",
			"ride hailing", "delivery driver", "remote work income",
			"freelance tax", "digital nomad",
		},
		weak: []string{
			"freelancer", "contractor", "self-employed", "side hustle",
			"part-time", "casual worker", "gig",
		},
	},
	{
		persona: "informal_sector",
		strong: []string{
			"jua kali", "market trader", "bodaboda", "mama mboga",
			"chama", "merry-go-round", "table banking",
			"informal sector", "micro enterprise",
			"mkokoteni", "kiosk", "hawker", "mama fua",
			"boda boda", "mitumba",
		},
		weak: []string{
			"informal", "trader", "market", "small trader",
			"daily income", "cash business",
		},
	},
	{
		persona: "diaspora",
		strong: []string{
			"diaspora", "remittance", "send money kenya",
			"diaspora account", "foreign income", "offshore",
			"kenya abroad", "expatriate", "diaspora bond",
			"diaspora banking", "international money transfer",
		},
		weak: []string{
			"diaspora", "abroad", "remittance", "forex",
			"international transfer", "foreign exchange",
		},
	},
}

// lifeStageRule grades reader sophistication.
type lifeStageRule struct {
	stage            docmeta.LifeStage
	keywords         []string
	sourceHints      []string
	institutionHints []docmeta.InstitutionType
}

var lifeStageRules = []lifeStageRule{
	{
		stage: docmeta.LifeStageBeginner,
		keywords: []string{
			"how to", "beginner", "getting started", "basics",
			"what is", "introduction to", "first time",
			"financial literacy", "learn about", "simple guide",
			"step by step", "for beginners", "explained simply",
			"tips for", "start saving", "open an account",
			"money 101", "personal finance basics",
		},
		sourceHints: []string{
			"mashauri", "centonomy", "malkia", "kwft",
			"fin_incorrect", "lynn_ngugi", "susan_wong",
			"abojani",
		},
		institutionHints: []docmeta.InstitutionType{docmeta.InstitutionEducation},
	},
	{
		stage: docmeta.LifeStageIntermediate,
		keywords: []string{
			"compare", "best", "analysis", "strategy",
			"diversification", "portfolio", "optimization",
			"financial planning", "investment strategy",
			"asset allocation", "risk management",
			"tax planning", "retirement planning",
		},
		sourceHints: []string{
			"cytonn", "genghis", "faida", "dyer_blair", "sib",
		},
		institutionHints: []docmeta.InstitutionType{
			docmeta.InstitutionInvestment, docmeta.InstitutionStockbroker,
		},
	},
	{
		stage: docmeta.LifeStageAdvanced,
		keywords: []string{
			"technical analysis", "fundamental analysis",
			"derivatives", "hedging", "structured products",
			"capital adequacy", "basel", "regulatory compliance",
			"monetary policy committee", "prudential guidelines",
			"systemic risk", "macroprudential", "yield curve",
			"quantitative easing", "open market operations",
		},
		sourceHints:      []string{"cbk", "cma", "treasury", "nse"},
		institutionHints: []docmeta.InstitutionType{docmeta.InstitutionRegulatory},
	},
}

// riskRule grades the risk level of the products a text discusses.
// Ordered highest first so ties break toward the riskier reading, which
// is the safer default for suitability filtering.
type riskRule struct {
	level    docmeta.RiskLevel
	keywords []string
}

var riskRules = []riskRule{
	{
		level: docmeta.RiskVeryHigh,
		keywords: []string{
			"high risk", "speculative", "forex trading", "crypto",
			"leveraged", "derivatives", "options trading",
			"margin trading", "day trading", "pyramid scheme",
			"ponzi", "cryptocurrency", "binary options",
		},
	},
	{
		level: docmeta.RiskHigh,
		keywords: []string{
			"equities", "stock market", "shares", "ipo",
			"venture capital", "private equity", "startup",
			"real estate investment", "land banking",
			"nse trading", "capital appreciation",
		},
	},
	{
		level: docmeta.RiskMedium,
		keywords: []string{
			"unit trust", "money market fund", "balanced fund",
			"corporate bond", "infrastructure bond",
			"sacco investment", "mutual fund", "diversified",
			"moderate risk", "income fund",
		},
	},
	{
		level: docmeta.RiskLow,
		keywords: []string{
			"savings account", "fixed deposit", "treasury bill",
			"government bond", "nssf", "pension",
			"insurance", "money market", "call deposit",
			"guaranteed", "capital protection", "risk-free",
		},
	},
}

// productRule classifies the financial products a text covers.
// Two keyword hits are required to claim a category.
type productRule struct {
	product  string
	keywords []string
}

var productRules = []productRule{
	{"savings", []string{
		"savings account", "fixed deposit", "call deposit", "money market",
		"savings plan", "save money", "interest on savings",
		"fosa", "savings product", "saving tips",
	}},
	{"loans", []string{
		"loan", "credit", "borrow", "overdraft",
		"personal loan", "business loan", "asset finance",
		"lpo financing", "salary advance", "check-off",
		"credit facility", "loan repayment",
	}},
	{"mortgage", []string{
		"mortgage", "home loan", "housing finance",
		"home ownership", "kmrc", "property finance",
		"housing fund", "affordable housing",
	}},
	{"insurance", []string{
		"insurance", "cover", "premium", "claim", "underwrite",
		"life insurance", "health insurance", "motor insurance",
		"general insurance", "nhif", "medical cover",
	}},
	{"investment", []string{
		"investment", "portfolio", "returns", "dividend",
		"unit trust", "money market fund", "equity fund",
		"mutual fund", "wealth management", "asset management",
	}},
	{"pension", []string{
		"pension", "retirement", "nssf", "provident fund",
		"annuity", "retirement benefit", "gratuity",
		"retirement savings", "pension scheme",
	}},
	{"mobile_money", []string{
		"m-pesa", "mpesa", "airtel money", "t-kash",
		"mobile money", "mobile wallet", "send money",
		"paybill", "till number", "lipa na", "fuliza",
	}},
	{"sacco_products", []string{
		"sacco", "fosa", "bosa", "share capital",
		"sacco loan", "sacco savings", "sacco dividend",
		"merry-go-round", "chama",
	}},
	{"tax", []string{
		"tax", "paye", "vat", "income tax", "corporate tax",
		"turnover tax", "withholding tax", "capital gains",
		"tax return", "kra", "itax", "tax compliance",
	}},
	{"budgeting", []string{
		"budget", "expense tracking", "spending", "financial plan",
		"emergency fund", "financial goal", "saving plan",
		"money management", "personal finance",
	}},
	{"equities", []string{
		"stock", "share", "equity", "nse",
		"listed company", "ipo", "market capitalization",
		"stock exchange", "share price", "equity trading",
	}},
	{"bonds", []string{
		"bond", "treasury bill", "t-bill", "t-bond",
		"government securities", "infrastructure bond",
		"fixed income", "coupon", "green bond",
	}},
	{"forex", []string{
		"forex", "foreign exchange", "exchange rate",
		"currency", "dollar", "euro", "sterling",
		"fx market", "currency pair",
	}},
}
