package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/lumora-app/listsync/internal/listsync"
)

// Use selects which list the item and folder commands act on.
//
//	use mutes
//	use follows <name>
func (a *App) Use(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(a.out, "Current list: %s\n", a.current.Name)
		return nil
	}

	switch args[0] {
	case "mutes":
		a.current = listsync.MuteListSchema()
	case "follows":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: use follows <name>")
			return nil
		}
		a.current = listsync.FollowSetSchema(args[1], args[1])
	default:
		fmt.Fprintln(a.out, "Known lists: mutes, follows <name>")
		return nil
	}

	fmt.Fprintf(a.out, "Now working with the %s.\n", a.current.Name)
	return nil
}

// Sync runs a full cycle against the file and the relays, bypassing the
// cache fast path.
func (a *App) Sync(ctx context.Context) error {
	o, err := a.orchestrator()
	if err != nil {
		return err
	}

	snap, err := o.Sync(ctx, true)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Synced %d item(s).\n", len(snap.Items))
	if snap.OpaquePrivate != nil {
		fmt.Fprintln(a.out, "Note: the private section was created on another device and cannot be shown here.")
	}
	if o.PublishPending() {
		fmt.Fprintln(a.out, "Local edits are waiting for 'publish'.")
	}
	return nil
}

// List prints the current snapshot, grouped by folder.
func (a *App) List(ctx context.Context) error {
	o, err := a.orchestrator()
	if err != nil {
		return err
	}

	snap, err := o.Sync(ctx, false)
	if err != nil {
		return err
	}
	if len(snap.Items) == 0 {
		fmt.Fprintln(a.out, "The list is empty.")
		return nil
	}

	folders, assignments, err := folderView(ctx, o.Folders())
	if err != nil {
		return err
	}

	byID := make(map[string]listsync.Item[listsync.Contact], len(snap.Items))
	for _, it := range snap.Items {
		byID[a.current.ItemID(it.Value)] = it
	}

	printGroup := func(folderID, label string) {
		members := membersInOrder(assignments, folderID)
		if label != "" && len(members) == 0 {
			fmt.Fprintf(a.out, "%s (empty)\n", label)
			return
		}
		if label != "" {
			fmt.Fprintln(a.out, label)
		}
		for _, id := range members {
			it, ok := byID[id]
			if !ok {
				continue
			}
			marker := ""
			if it.Private {
				marker = " [private]"
			}
			name := it.Value.Petname
			if name != "" {
				name = "  (" + name + ")"
			}
			fmt.Fprintf(a.out, "  %s%s%s\n", shortKey(id), name, marker)
		}
	}

	printGroup(listsync.RootID, "")
	for _, f := range folders {
		printGroup(f.ID, f.Name+"/")
	}
	return nil
}

// folderView loads the folder store contents for the selected list.
func folderView(ctx context.Context, fs *listsync.FolderStore) ([]listsync.Folder, []listsync.MemberAssignment, error) {
	folders, err := fs.Folders(ctx)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := fs.Assignments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return folders, assignments, nil
}

func membersInOrder(assignments []listsync.MemberAssignment, folderID string) []string {
	var members []listsync.MemberAssignment
	for _, asg := range assignments {
		if asg.FolderID == folderID {
			members = append(members, asg)
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ItemID
	}
	return ids
}
