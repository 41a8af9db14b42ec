package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	account, err := a.accounts.Active()
	if err != nil {
		return "(not logged in) >"
	}
	return fmt.Sprintf("(%s, %s) >", shortKey(account.PubKey), a.current.Name)
}

func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "List sync client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
