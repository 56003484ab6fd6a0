package wordlist

import _ "embed"

//go:embed common_dirs.txt
var embeddedWordlist string
