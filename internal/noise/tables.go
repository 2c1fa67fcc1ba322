package noise

// DigitWords holds the spoken alternatives of every digit. The first entry
// is the canonical reading used for dates.
var DigitWords = map[rune][]string{
	'0': {"oh", "zero"},
	'1': {"one", "wun"},
	'2': {"two", "too"},
	'3': {"three"},
	'4': {"four", "for"},
	'5': {"five"},
	'6': {"six"},
	'7': {"seven"},
	'8': {"eight"},
	'9': {"nine"},
}

// SymbolWords holds the spoken alternatives of recognized symbols. Each
// alternative is padded with spaces; callers normalize whitespace.
var SymbolWords = map[rune][]string{
	'@': {" at ", " sign ", " at sign "},
	'.': {" dot ", " period ", " full stop "},
	'-': {" dash ", " hyphen ", " minus "},
	'/': {" slash ", " forward slash "},
	' ': {" space ", " gap "},
}

// Fillers is the default disfluency vocabulary.
var Fillers = []string{"uh", "um", "you know", "like", "i mean", "well", "so", "actually"}

// nameRespelling maps name fragments that STT engines commonly split or
// misspell to their transcribed form. Applied in order.
var nameRespelling = []struct {
	from, to string
}{
	{"ramesh", "ra mesh"},
	{"priyanka", "prianca"},
	{"anil", "a nil"},
	{"sita", "seeta"},
}

// atMarker prefixes both " at " and " at sign ".
const atMarker = " at "
