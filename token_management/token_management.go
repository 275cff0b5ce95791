package token_management

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/openclaw/clawtographer/constants/lipgloss"
	"github.com/openclaw/clawtographer/token_management/contracts"
)

// tokenManager counts tokens with a tiktoken encoder and accumulates the
// session's backend usage.
type tokenManager struct {
	encoder         *tiktoken.Tiktoken
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

// NewTokenManager creates a token manager backed by the cl100k_base encoding,
// a close enough approximation for the local models this tool drives.
func NewTokenManager() (contracts.ITokenManagement, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &tokenManager{encoder: encoder}, nil
}

// CountTokens returns the token count of text under the configured encoding.
func (tm *tokenManager) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(tm.encoder.Encode(text, nil, nil))
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

func (tm *tokenManager) DisplayTokens(chatModel string) {
	tokenInfo := fmt.Sprintf("Token Used: %d (Input: %d, Output: %d) - Model: %s",
		tm.usedToken, tm.usedInputToken, tm.usedOutputToken, chatModel)

	tokenBox := lipgloss.BoxStyle.Render(tokenInfo)
	fmt.Println(tokenBox)
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

func (tm *tokenManager) ClearToken() {
	tm.usedToken = 0
	tm.usedInputToken = 0
	tm.usedOutputToken = 0
}
