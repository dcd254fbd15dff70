package mocks

//go:generate mockgen -destination=./mock_terminal.go -package=mocks github.com/tathienbao/terminal-gateway/internal/terminal Terminal
