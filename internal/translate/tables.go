package translate

import "regexp"

// Built-in phrase tables for the offline fallback. Keys are matched
// longest-first so full sentences win over the words they contain.
var phraseTables = map[string]map[string]string{
	"en-hi": {
		"Mouse":                "माउस",
		"A Computer Part":      "एक कंप्यूटर भाग",
		"Parts of a Mouse":     "माउस के भाग",
		"Left Button":          "बायां बटन",
		"Right Button":         "दायां बटन",
		"Scroll Wheel":         "स्क्रॉल व्हील",
		"Uses of Mouse":        "माउस के उपयोग",
		"Example for Students": "छात्रों के लिए उदाहरण",
		"A mouse is a small device that helps us control the computer.":   "माउस एक छोटा उपकरण है जो हमें कंप्यूटर को नियंत्रित करने में मदद करता है।",
		"It has two buttons and a scroll wheel.":                          "इसमें दो बटन और एक स्क्रॉल व्हील होता है।",
		"The left button is used to select and open things.":              "बायां बटन चीजों को चुनने और खोलने के लिए उपयोग किया जाता है।",
		"The right button shows us more options.":                         "दायां बटन हमें अधिक विकल्प दिखाता है।",
		"The scroll wheel helps us move up and down on the page.":         "स्क्रॉल व्हील पेज पर ऊपर-नीचे जाने में हमारी मदद करता है।",
		"We can open programs by clicking on them.":                       "हम उन पर क्लिक करके प्रोग्राम खोल सकते हैं।",
		"We can play games using the mouse.":                              "हम माउस का उपयोग करके गेम खेल सकते हैं।",
		"We can draw pictures using the mouse.":                           "हम माउस का उपयोग करके चित्र बना सकते हैं।",
		"We move the mouse to move the cursor on the screen.":             "हम स्क्रीन पर कर्सर को हिलाने के लिए माउस को हिलाते हैं।",
		"The mouse helps us to point, click, and move things on the screen.": "माउस हमें स्क्रीन पर पॉइंट करने, क्लिक करने और चीजों को हिलाने में मदद करता है।",
	},
	"en-pa": {
		"Mouse":                "ਮਾਊਸ",
		"A Computer Part":      "ਇੱਕ ਕੰਪਿਊਟਰ ਭਾਗ",
		"Parts of a Mouse":     "ਮਾਊਸ ਦੇ ਹਿੱਸੇ",
		"Left Button":          "ਖੱਬਾ ਬਟਨ",
		"Right Button":         "ਸੱਜਾ ਬਟਨ",
		"Scroll Wheel":         "ਸਕ੍ਰੌਲ ਵ੍ਹੀਲ",
		"Uses of Mouse":        "ਮਾਊਸ ਦੇ ਉਪਯੋਗ",
		"Example for Students": "ਵਿਦਿਆਰਥੀਆਂ ਲਈ ਉਦਾਹਰਣ",
		"A mouse is a small device that helps us control the computer.":   "ਮਾਊਸ ਇੱਕ ਛੋਟਾ ਉਪਕਰਣ ਹੈ ਜੋ ਸਾਨੂੰ ਕੰਪਿਊਟਰ ਨੂੰ ਨਿਯੰਤਰਿਤ ਕਰਨ ਵਿੱਚ ਮਦਦ ਕਰਦਾ ਹੈ।",
		"It has two buttons and a scroll wheel.":                          "ਇਸ ਵਿੱਚ ਦੋ ਬਟਨ ਅਤੇ ਇੱਕ ਸਕ੍ਰੌਲ ਵ੍ਹੀਲ ਹੁੰਦਾ ਹੈ।",
		"The left button is used to select and open things.":              "ਖੱਬਾ ਬਟਨ ਚੀਜ਼ਾਂ ਨੂੰ ਚੁਣਨ ਅਤੇ ਖੋਲ੍ਹਣ ਲਈ ਵਰਤਿਆ ਜਾਂਦਾ ਹੈ।",
		"The right button shows us more options.":                         "ਸੱਜਾ ਬਟਨ ਸਾਨੂੰ ਹੋਰ ਵਿਕਲਪ ਦਿਖਾਉਂਦਾ ਹੈ।",
		"The scroll wheel helps us move up and down on the page.":         "ਸਕ੍ਰੌਲ ਵ੍ਹੀਲ ਪੇਜ 'ਤੇ ਉੱਪਰ-ਹੇਠਾਂ ਜਾਣ ਵਿੱਚ ਸਾਡੀ ਮਦਦ ਕਰਦਾ ਹੈ।",
		"We can open programs by clicking on them.":                       "ਅਸੀਂ ਉਨ੍ਹਾਂ 'ਤੇ ਕਲਿਕ ਕਰਕੇ ਪ੍ਰੋਗਰਾਮ ਖੋਲ੍ਹ ਸਕਦੇ ਹਾਂ।",
		"We can play games using the mouse.":                              "ਅਸੀਂ ਮਾਊਸ ਦਾ ਉਪਯੋਗ ਕਰਕੇ ਗੇਮ ਖੇਡ ਸਕਦੇ ਹਾਂ।",
		"We can draw pictures using the mouse.":                           "ਅਸੀਂ ਮਾਊਸ ਦਾ ਉਪਯੋਗ ਕਰਕੇ ਚਿੱਤਰ ਬਣਾ ਸਕਦੇ ਹਾਂ।",
		"We move the mouse to move the cursor on the screen.":             "ਅਸੀਂ ਸਕ੍ਰੀਨ 'ਤੇ ਕਰਸਰ ਨੂੰ ਹਿਲਾਉਣ ਲਈ ਮਾਊਸ ਨੂੰ ਹਿਲਾਉਂਦੇ ਹਾਂ।",
		"The mouse helps us to point, click, and move things on the screen.": "ਮਾਊਸ ਸਾਨੂੰ ਸਕ੍ਰੀਨ ਉੱਤੇ ਪੁਆਇੰਟ ਕਰਨ, ਕਲਿਕ ਕਰਨ ਅਤੇ ਚੀਜ਼ਾਂ ਨੂੰ ਹਿਲਾਉਣ ਵਿੱਚ ਮਦਦ ਕਰਦਾ ਹੈ।",
	},
}

// wordRule is a single word-level substitution applied after phrase
// matching finds nothing.
type wordRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var wordTables = map[string][]wordRule{
	"en-hi": {
		{regexp.MustCompile(`Mouse`), "माउस"},
		{regexp.MustCompile(`(?i)computer`), "कंप्यूटर"},
		{regexp.MustCompile(`(?i)button`), "बटन"},
		{regexp.MustCompile(`(?i)click`), "क्लिक करें"},
	},
	"en-pa": {
		{regexp.MustCompile(`Mouse`), "ਮਾਊਸ"},
		{regexp.MustCompile(`(?i)computer`), "ਕੰਪਿਊਟਰ"},
		{regexp.MustCompile(`(?i)button`), "ਬਟਨ"},
		{regexp.MustCompile(`(?i)click`), "ਕਲਿਕ ਕਰੋ"},
	},
}
