package cli

import (
	"context"
	"fmt"

	"github.com/lumora-app/listsync/internal/listsync"
)

// Add inserts (or updates) an item in the current list.
//
//	add <pubkey> [petname]          public entry
//	add -p <pubkey> [petname]       private entry
func (a *App) Add(ctx context.Context, args []string) error {
	private := false
	if len(args) > 0 && args[0] == "-p" {
		private = true
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: add [-p] <pubkey> [petname]")
		return nil
	}

	contact := listsync.Contact{PubKey: args[0]}
	if len(args) > 1 {
		contact.Petname = args[1]
	}

	o, err := a.orchestrator()
	if err != nil {
		return err
	}
	if err := o.AddItem(ctx, listsync.Item[listsync.Contact]{Value: contact, Private: private}); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added %s. Run 'publish' to push the change to your relays.\n", shortKey(contact.PubKey))
	return nil
}

// Remove deletes an item from the current list.
func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: remove <pubkey>")
		return nil
	}

	o, err := a.orchestrator()
	if err != nil {
		return err
	}
	if err := o.RemoveItem(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Removed %s. Run 'publish' to push the change to your relays.\n", shortKey(args[0]))
	return nil
}

// Publish pushes the current list to the relays.
func (a *App) Publish(ctx context.Context) error {
	o, err := a.orchestrator()
	if err != nil {
		return err
	}
	if err := o.Publish(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Published.")
	return nil
}
