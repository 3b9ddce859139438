package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.account != nil && a.account.UserID != "" {
		return fmt.Sprintf("(%s)", a.account.UserID)
	}
	return ""
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to PixelVault CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("pv %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: sync, cancel, (l)ist, count, download, delete, usage, clear, logout, exit")
			} else {
				fmt.Println("Available commands: login, exit")
			}

		case "login":
			if err := a.Login(ctx); err != nil {
				log.Printf("Login failed: %s", err.Error())
			}
		case "logout":
			if err := a.Logout(ctx); err != nil {
				log.Printf("Logout failed: %s", err.Error())
			}
		case "sync":
			a.sync(ctx)
		case "cancel":
			a.cancelSync()
		case "l", "list":
			a.list(ctx)
		case "count":
			a.count(ctx)
		case "download":
			a.download(ctx)
		case "delete":
			a.delete(ctx)
		case "usage":
			a.usage(ctx)
		case "clear":
			a.clear(ctx)
		case "exit", "quit":
			a.syncSvc.Cancel()
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
