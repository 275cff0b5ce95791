package contracts

type ITokenManagement interface {
	CountTokens(text string) int
	UsedTokens(inputToken int, outputToken int)
	DisplayTokens(chatModel string)
	GetCurrentTokenUsage() (total int, input int, output int)
	ClearToken()
}
