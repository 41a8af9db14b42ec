package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Folder dispatches the folder subcommands:
//
//	folder add <name>
//	folder rename <id-prefix> <name>
//	folder rm <id-prefix>
//	folder mv <pubkey> <id-prefix|root>
//	folder pos <pubkey> <position>
func (a *App) Folder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.listFolders(ctx)
	}

	o, err := a.orchestrator()
	if err != nil {
		return err
	}
	fs := o.Folders()

	switch args[0] {
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: folder add <name>")
			return nil
		}
		folder, err := fs.CreateFolder(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created folder %q (%s)\n", folder.Name, shortKey(folder.ID))

	case "rename":
		if len(args) < 3 {
			fmt.Fprintln(a.out, "Usage: folder rename <id-prefix> <name>")
			return nil
		}
		id, err := a.resolveFolder(ctx, args[1])
		if err != nil {
			return err
		}
		return fs.RenameFolder(ctx, id, strings.Join(args[2:], " "))

	case "rm":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: folder rm <id-prefix>")
			return nil
		}
		id, err := a.resolveFolder(ctx, args[1])
		if err != nil {
			return err
		}
		moved, err := fs.DeleteFolder(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Folder removed; %d item(s) moved to the top level.\n", len(moved))

	case "mv":
		if len(args) < 3 {
			fmt.Fprintln(a.out, "Usage: folder mv <pubkey> <id-prefix|root>")
			return nil
		}
		target := ""
		if args[2] != "root" {
			target, err = a.resolveFolder(ctx, args[2])
			if err != nil {
				return err
			}
		}
		return fs.MoveMemberToFolder(ctx, args[1], target)

	case "pos":
		if len(args) < 3 {
			fmt.Fprintln(a.out, "Usage: folder pos <pubkey> <position>")
			return nil
		}
		pos, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintln(a.out, "Position must be a number.")
			return nil
		}
		return fs.MoveItemToPosition(ctx, args[1], pos)

	default:
		fmt.Fprintln(a.out, "Folder commands: add, rename, rm, mv, pos")
	}
	return nil
}

func (a *App) listFolders(ctx context.Context) error {
	o, err := a.orchestrator()
	if err != nil {
		return err
	}

	folders, err := o.Folders().Folders(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintln(a.out, "No folders.")
		return nil
	}
	for _, f := range folders {
		fmt.Fprintf(a.out, "%2d. %s (%s)\n", f.Order, f.Name, shortKey(f.ID))
	}
	return nil
}

// resolveFolder matches a folder by id prefix or exact name.
func (a *App) resolveFolder(ctx context.Context, ref string) (string, error) {
	o, err := a.orchestrator()
	if err != nil {
		return "", err
	}
	folders, err := o.Folders().Folders(ctx)
	if err != nil {
		return "", err
	}

	for _, f := range folders {
		if f.Name == ref || strings.HasPrefix(f.ID, ref) {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("no folder matches %q", ref)
}
