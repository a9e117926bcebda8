package icon

// Icon identifies a UI symbol.
type Icon int

const (
	Lua Icon = iota
	Success
	Fail
	Warn
	Active
	External
	Builtin
	Search
	Link
)

// Entries are ordered emoji, nerd, plain, kaomoji, squares.
var icons = map[Icon]glyphs{
	Lua:      {"🌙", "", "Lua", "(=^･ω･^=)", "◧"},
	Success:  {"🎉", " ", "Success", "(ᵔ◡ᵔ)", "▣"},
	Fail:     {"💀", " ", "Fail", "(×_×)", "▨"},
	Warn:     {"⚠️", " ", "Warn", "(•_•)", "◬"},
	Active:   {"⭐", "", "*", "(★‿★)", "■"},
	External: {"🌐", "", "ext", "(◕‿◕)", "◪"},
	Builtin:  {"📦", "", "builtin", "(¬‿¬)", "◩"},
	Search:   {"🔍", "", "?", "(・_・ヾ", "◫"},
	Link:     {"🔗", "", "->", "(⊃｡•́‿•̀｡)⊃", "◨"},
}
