package scorer

import "regexp"

// Rule tables for the weighted-evidence accumulator. The tables are
// hand-tuned; entries are matched against the lowercased message text unless
// the pattern itself is case-insensitive.

// criticalPhrases are exact substrings that individually mark well-known scam
// archetypes: urgency, lottery, government refunds, arrest/bail extortion.
var criticalPhrases = []string{
	"urgent action required", "account suspended", "verify immediately",
	"click here now", "act now or lose", "limited time offer",
	"congratulations you won", "lottery winner", "claim your prize",
	"you won lottery", "prize of $", "won $", "claim prize",
	"tax refund approved", "government refund", "irs notice",
	"customs clearance fee", "inheritance fund", "million dollars",
	"wire transfer required", "bitcoin payment", "western union",
	"final warning", "legal action", "arrest warrant",
	"your son arrested", "bail money required", "emergency payment",
}

// governmentScamPhrases and emergencyScamPhrases are the critical-phrase
// subsets that trigger their own escalation regardless of co-occurring
// signals.
var governmentScamPhrases = map[string]struct{}{
	"government refund":   {},
	"irs notice":          {},
	"tax refund approved": {},
}

var emergencyScamPhrases = map[string]struct{}{
	"your son arrested":   {},
	"bail money required": {},
	"arrest warrant":      {},
}

// compoundSuspicious are multi-clause patterns that only count when the
// message carries no legitimate banking context.
var compoundSuspicious = []*regexp.Regexp{
	regexp.MustCompile(`(?i)urgent.*verify.*account`),
	regexp.MustCompile(`(?i)suspended.*click.*link`),
	regexp.MustCompile(`(?i)winner.*claim.*prize`),
	regexp.MustCompile(`(?i)government.*refund.*\$\d+`),
	regexp.MustCompile(`(?i)arrested.*pay.*bail`),
	regexp.MustCompile(`(?i)block.*account.*verify`),
}

// legitimateBanking patterns are strong positive indicators of real
// bank/service traffic: statements, transfers, OTP delivery, KYC, support.
var legitimateBanking = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dear (customer|user|member)`),
	regexp.MustCompile(`(?i)your otp (is|for)`),
	regexp.MustCompile(`(?i)valid for \d+ (minutes|mins|hours)`),
	regexp.MustCompile(`(?i)do not share (this|your|otp)`),
	regexp.MustCompile(`(?i)transaction (at|on|for|with)`),
	regexp.MustCompile(`(?i)payment.*successful`),
	regexp.MustCompile(`(?i)has been processed`),
	regexp.MustCompile(`(?i)thank you for using`),
	regexp.MustCompile(`(?i)reference number`),
	regexp.MustCompile(`(?i)transaction id`),
	regexp.MustCompile(`(?i)account balance`),
	regexp.MustCompile(`(?i)bill payment`),
	regexp.MustCompile(`(?i)debit.*credit card`),
	regexp.MustCompile(`(?i)credited.*account`),
	regexp.MustCompile(`(?i)debited.*account`),
	regexp.MustCompile(`(?i)balance.*rs\.?\s*\d+`),
	regexp.MustCompile(`(?i)available.*balance`),
	regexp.MustCompile(`(?i)mini.*statement`),
	regexp.MustCompile(`(?i)last.*transaction`),
	regexp.MustCompile(`(?i)transferred.*successfully`),
	regexp.MustCompile(`(?i)upi.*payment`),
	regexp.MustCompile(`(?i)neft.*rtgs`),
	regexp.MustCompile(`(?i)mobile.*banking`),
	regexp.MustCompile(`(?i)internet.*banking`),
	regexp.MustCompile(`(?i)atm.*transaction`),
	regexp.MustCompile(`(?i)card.*transaction`),
	regexp.MustCompile(`(?i)ifsc.*code`),
	regexp.MustCompile(`(?i)beneficiary.*added`),
	regexp.MustCompile(`(?i)standing.*instruction`),
	regexp.MustCompile(`(?i)fixed.*deposit`),
	regexp.MustCompile(`(?i)recurring.*deposit`),
	regexp.MustCompile(`(?i)loan.*payment`),
	regexp.MustCompile(`(?i)emi.*due`),
	regexp.MustCompile(`(?i)kyc.*verification`),
	regexp.MustCompile(`(?i)customer.*care`),
	regexp.MustCompile(`(?i)toll.*free`),
	regexp.MustCompile(`(?i)branch.*visit`),
	regexp.MustCompile(`(?i)account.*statement`),
	regexp.MustCompile(`(?i)cheque.*book`),
}

// conversationalWords never trigger alerts on their own; a short message
// built from them short-circuits to strongly safe.
var conversationalWords = []string{
	"hi", "hello", "hey", "thanks", "ok", "yes", "no",
	"good", "morning", "evening", "night", "how", "what",
	"when", "where", "why", "please", "sorry", "welcome",
}

// shortenedURLs match only shortened or throwaway link domains.
var shortenedURLs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bit\.ly/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)tinyurl\.com/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)t\.co/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)goo\.gl/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)ow\.ly/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)short\.link`),
	regexp.MustCompile(`(?i)click\.me`),
}

// largeAmountUrgency match large amounts demanded with pressure wording.
var largeAmountUrgency = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pay \$[1-9]\d{3,}`),
	regexp.MustCompile(`(?i)send ₹[1-9]\d{4,}`),
	regexp.MustCompile(`(?i)transfer.*\$[1-9]\d{3,}`),
	regexp.MustCompile(`(?i)urgent.*₹[1-9]\d{3,}`),
}

// trustedSenderCodes is the fixed allow-list of bank/merchant codes used for
// the sender-hint reduction. Distinct from the DLT trust list: this one only
// suppresses scorer false positives and is matched by equality or prefix.
var trustedSenderCodes = []string{
	"SBIINB", "HDFCBANK", "ICICIBANK", "AXISBANK", "PNBINB", "UBIBANK",
	"CANBNK", "BOBBANK", "UNIONBNK", "INDIANBK", "KOTAKBNK", "YESBANK",
	"AMAZON", "FLIPKART", "PAYTM", "PHONEPE", "GPAY", "BHARATPE",
	"SWIGGY", "ZOMATO", "UBEREATS", "OLA", "UBER", "MAKEMYTRIP",
	"IRCTC", "BSNL", "AIRTEL", "JIO", "VODAFONE", "TATA", "ADANI",
}

var (
	urgencyWords    = regexp.MustCompile(`(?i)urgent|immediate|asap`)
	pressureWords   = regexp.MustCompile(`(?i)urgent|now|immediate`)
	currencySymbols = regexp.MustCompile(`\$|₹|USD|INR|EUR`)
)
