package listsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/common"
	"github.com/natefinch/atomic"
)

// RootID is the folder id of the hierarchy's top level.
const RootID = ""

// Folder groups list items locally. Order is only meaningful relative to
// sibling folders and is not required to be contiguous until a reorder runs.
type Folder struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Order     int
}

// MemberAssignment places one item in one folder (or the root). There is at
// most one assignment per item id.
type MemberAssignment struct {
	ItemID   string
	FolderID string
	Order    int
}

// RootOrderType discriminates entries of the interleaved root order.
type RootOrderType string

const (
	RootOrderFolder RootOrderType = "folder"
	RootOrderMember RootOrderType = "member"
)

// RootOrderItem interleaves folders and unfiled items into the single
// displayed sequence at the root. It is display metadata only, independent
// of the Order fields on Folder and MemberAssignment.
type RootOrderItem struct {
	Type RootOrderType `json:"type"`
	ID   string        `json:"id"`
}

type folderRec struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	Order     int    `json:"order"`
}

type assignmentRec struct {
	ItemID   string `json:"item_id"`
	FolderID string `json:"folder_id"`
	Order    int    `json:"order"`
}

type folderDoc struct {
	Version      int             `json:"version"`
	Folders      []folderRec     `json:"folders"`
	Assignments  []assignmentRec `json:"assignments"`
	RootOrder    []RootOrderItem `json:"root_order,omitempty"`
	LastModified int64           `json:"last_modified"`
}

// FolderStore maintains the folder hierarchy and item placement for one
// (account, list) pair. It is pure local metadata: no folder operation ever
// touches the network, and none of them create or destroy list items.
type FolderStore struct {
	path  string
	lock  *flock.Flock
	clock clockwork.Clock

	mu     sync.Mutex
	loaded bool
	doc    folderDoc
}

// NewFolderStore binds the store to the list's folder document under the
// account's data directory.
func NewFolderStore(dataDir, pubKey, storageKey string, clock clockwork.Clock) (*FolderStore, error) {
	dir := filepath.Join(dataDir, "accounts", pubKey, "lists")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", common.ErrStorage, dir, err)
	}

	path := filepath.Join(dir, storageKey+".folders.json")
	return &FolderStore{
		path:  path,
		lock:  flock.New(path + ".lock"),
		clock: clock,
	}, nil
}

// CreateFolder adds a folder at the end of the root-level folder order.
func (f *FolderStore) CreateFolder(ctx context.Context, name string) (Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return Folder{}, err
	}

	rec := folderRec{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: f.clock.Now().Unix(),
		Order:     f.maxFolderOrder() + 1,
	}
	f.doc.Folders = append(f.doc.Folders, rec)
	if len(f.doc.RootOrder) > 0 {
		f.doc.RootOrder = append(f.doc.RootOrder, RootOrderItem{Type: RootOrderFolder, ID: rec.ID})
	}

	if err := f.save(ctx); err != nil {
		return Folder{}, err
	}
	return folderFromRec(rec), nil
}

// RenameFolder changes a folder's display name.
func (f *FolderStore) RenameFolder(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	for i := range f.doc.Folders {
		if f.doc.Folders[i].ID == id {
			f.doc.Folders[i].Name = name
			return f.save(ctx)
		}
	}
	return fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
}

// DeleteFolder removes the folder, migrating every member to the root and
// renumbering the root to stay contiguous. Deleting a folder never removes
// list items. The affected item ids are returned so callers can refresh
// dependent views.
func (f *FolderStore) DeleteFolder(ctx context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return nil, err
	}

	idx := -1
	for i := range f.doc.Folders {
		if f.doc.Folders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
	}

	var affected []string
	next := f.maxAssignmentOrder(RootID) + 1
	for i := range f.doc.Assignments {
		if f.doc.Assignments[i].FolderID != id {
			continue
		}
		f.doc.Assignments[i].FolderID = RootID
		f.doc.Assignments[i].Order = next
		next++
		affected = append(affected, f.doc.Assignments[i].ItemID)
	}

	f.renumber(RootID)
	f.doc.Folders = append(f.doc.Folders[:idx], f.doc.Folders[idx+1:]...)
	f.dropFromRootOrder(RootOrderFolder, id)

	if err := f.save(ctx); err != nil {
		return nil, err
	}
	return affected, nil
}

// Folders lists all folders sorted by order.
func (f *FolderStore) Folders(ctx context.Context) ([]Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return nil, err
	}

	out := make([]Folder, 0, len(f.doc.Folders))
	for _, rec := range f.sortedFolders() {
		out = append(out, folderFromRec(rec))
	}
	return out, nil
}

// Assignments lists every member assignment.
func (f *FolderStore) Assignments(ctx context.Context) ([]MemberAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return nil, err
	}

	out := make([]MemberAssignment, 0, len(f.doc.Assignments))
	for _, rec := range f.doc.Assignments {
		out = append(out, MemberAssignment(rec))
	}
	return out, nil
}

// MoveMemberToFolder places an item in the target folder ("" for root).
// Without an explicit order the item is appended; the folder the item left
// is renumbered to close the gap.
func (f *FolderStore) MoveMemberToFolder(ctx context.Context, itemID, folderID string, explicitOrder ...int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	if folderID != RootID && f.folderIndex(folderID) < 0 {
		return fmt.Errorf("folder %s: %w", folderID, common.ErrNotFound)
	}

	order := -1
	if len(explicitOrder) > 0 {
		order = explicitOrder[0]
	}

	idx := f.assignmentIndex(itemID)
	if idx < 0 {
		// First sighting: the assignment is created on the spot.
		if order < 0 {
			order = f.maxAssignmentOrder(folderID) + 1
		}
		f.doc.Assignments = append(f.doc.Assignments, assignmentRec{ItemID: itemID, FolderID: folderID, Order: order})
		return f.save(ctx)
	}

	source := f.doc.Assignments[idx].FolderID
	if order < 0 {
		order = f.maxAssignmentOrder(folderID) + 1
	}
	f.doc.Assignments[idx].FolderID = folderID
	f.doc.Assignments[idx].Order = order

	if source != folderID {
		f.renumber(source)
	}
	return f.save(ctx)
}

// ReorderItems renumbers one folder's assignments to a dense 0..n-1
// sequence sorted by their current order. This is the gap-filling pass run
// after every deletion and move.
func (f *FolderStore) ReorderItems(ctx context.Context, folderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	f.renumber(folderID)
	return f.save(ctx)
}

// MoveItemToPosition splices the item to the given position within its
// current folder and renumbers the folder. The position is clamped to
// [0, n].
func (f *FolderStore) MoveItemToPosition(ctx context.Context, itemID string, pos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	idx := f.assignmentIndex(itemID)
	if idx < 0 {
		return fmt.Errorf("item %s: %w", itemID, common.ErrNotFound)
	}
	folderID := f.doc.Assignments[idx].FolderID

	siblings := f.assignmentIndexes(folderID)
	ordered := make([]int, 0, len(siblings))
	for _, i := range siblings {
		if f.doc.Assignments[i].ItemID != itemID {
			ordered = append(ordered, i)
		}
	}

	if pos < 0 {
		pos = 0
	}
	if pos > len(ordered) {
		pos = len(ordered)
	}
	ordered = append(ordered[:pos], append([]int{idx}, ordered[pos:]...)...)

	for n, i := range ordered {
		f.doc.Assignments[i].Order = n
	}
	return f.save(ctx)
}

// MoveFolderToPosition splices the folder to the given position in the
// root-level folder order and renumbers all folders.
func (f *FolderStore) MoveFolderToPosition(ctx context.Context, folderID string, pos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	if f.folderIndex(folderID) < 0 {
		return fmt.Errorf("folder %s: %w", folderID, common.ErrNotFound)
	}

	sorted := f.sortedFolders()
	ordered := make([]folderRec, 0, len(sorted))
	var moving folderRec
	for _, rec := range sorted {
		if rec.ID == folderID {
			moving = rec
			continue
		}
		ordered = append(ordered, rec)
	}

	if pos < 0 {
		pos = 0
	}
	if pos > len(ordered) {
		pos = len(ordered)
	}
	ordered = append(ordered[:pos], append([]folderRec{moving}, ordered[pos:]...)...)

	for n := range ordered {
		ordered[n].Order = n
	}
	f.doc.Folders = ordered
	return f.save(ctx)
}

// RootOrder returns the interleaved root display order. If no explicit
// order was ever saved it is initialized from current state: unfiled items
// newest first (the caller supplies canonical ids in that order), then
// folders.
func (f *FolderStore) RootOrder(ctx context.Context, unfiledNewestFirst []string) ([]RootOrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return nil, err
	}

	if len(f.doc.RootOrder) == 0 {
		var init []RootOrderItem
		for _, id := range unfiledNewestFirst {
			init = append(init, RootOrderItem{Type: RootOrderMember, ID: id})
		}
		for _, rec := range f.sortedFolders() {
			init = append(init, RootOrderItem{Type: RootOrderFolder, ID: rec.ID})
		}
		if len(init) > 0 {
			f.doc.RootOrder = init
			if err := f.save(ctx); err != nil {
				return nil, err
			}
		}
	}

	out := make([]RootOrderItem, len(f.doc.RootOrder))
	copy(out, f.doc.RootOrder)
	return out, nil
}

// SetRootOrder replaces the explicit root display order.
func (f *FolderStore) SetRootOrder(ctx context.Context, order []RootOrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	f.doc.RootOrder = append([]RootOrderItem(nil), order...)
	return f.save(ctx)
}

// EnsureAssignments creates the implicit root assignment for every item id
// that has none yet, appending at the end of the root order.
func (f *FolderStore) EnsureAssignments(ctx context.Context, itemIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return err
	}

	changed := false
	next := f.maxAssignmentOrder(RootID) + 1
	for _, id := range itemIDs {
		if f.assignmentIndex(id) >= 0 {
			continue
		}
		f.doc.Assignments = append(f.doc.Assignments, assignmentRec{ItemID: id, FolderID: RootID, Order: next})
		if len(f.doc.RootOrder) > 0 {
			f.doc.RootOrder = append(f.doc.RootOrder, RootOrderItem{Type: RootOrderMember, ID: id})
		}
		next++
		changed = true
	}

	if !changed {
		return nil
	}
	return f.save(ctx)
}

// CleanupOrphanedAssignments drops every assignment whose item id is no
// longer in the canonical item set and returns how many were removed. It is
// idempotent and safe to run at any time.
func (f *FolderStore) CleanupOrphanedAssignments(ctx context.Context, canonical map[string]struct{}) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(ctx); err != nil {
		return 0, err
	}

	kept := f.doc.Assignments[:0]
	touched := make(map[string]struct{})
	removed := 0
	for _, rec := range f.doc.Assignments {
		if _, ok := canonical[rec.ItemID]; ok {
			kept = append(kept, rec)
			continue
		}
		removed++
		touched[rec.FolderID] = struct{}{}
		f.dropFromRootOrder(RootOrderMember, rec.ItemID)
	}
	if removed == 0 {
		return 0, nil
	}

	f.doc.Assignments = kept
	for folderID := range touched {
		f.renumber(folderID)
	}

	if err := f.save(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

func folderFromRec(rec folderRec) Folder {
	return Folder{ID: rec.ID, Name: rec.Name, CreatedAt: time.Unix(rec.CreatedAt, 0).UTC(), Order: rec.Order}
}

func (f *FolderStore) folderIndex(id string) int {
	for i := range f.doc.Folders {
		if f.doc.Folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *FolderStore) assignmentIndex(itemID string) int {
	for i := range f.doc.Assignments {
		if f.doc.Assignments[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// assignmentIndexes returns the indexes of one folder's assignments sorted
// by their current order.
func (f *FolderStore) assignmentIndexes(folderID string) []int {
	var idxs []int
	for i := range f.doc.Assignments {
		if f.doc.Assignments[i].FolderID == folderID {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return f.doc.Assignments[idxs[a]].Order < f.doc.Assignments[idxs[b]].Order
	})
	return idxs
}

func (f *FolderStore) sortedFolders() []folderRec {
	out := append([]folderRec(nil), f.doc.Folders...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (f *FolderStore) maxFolderOrder() int {
	max := -1
	for _, rec := range f.doc.Folders {
		if rec.Order > max {
			max = rec.Order
		}
	}
	return max
}

func (f *FolderStore) maxAssignmentOrder(folderID string) int {
	max := -1
	for _, rec := range f.doc.Assignments {
		if rec.FolderID == folderID && rec.Order > max {
			max = rec.Order
		}
	}
	return max
}

func (f *FolderStore) renumber(folderID string) {
	for n, i := range f.assignmentIndexes(folderID) {
		f.doc.Assignments[i].Order = n
	}
}

func (f *FolderStore) dropFromRootOrder(typ RootOrderType, id string) {
	kept := f.doc.RootOrder[:0]
	for _, it := range f.doc.RootOrder {
		if it.Type == typ && it.ID == id {
			continue
		}
		kept = append(kept, it)
	}
	f.doc.RootOrder = kept
}

func (f *FolderStore) load(ctx context.Context) error {
	if f.loaded {
		return nil
	}

	ok, err := f.lock.TryRLockContext(ctx, 20*time.Millisecond)
	if err != nil || !ok {
		return fmt.Errorf("%w: lock %s: %v", common.ErrStorage, f.path, err)
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.loaded = true
		f.doc = folderDoc{Version: 1}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", common.ErrStorage, f.path, err)
	}

	if err := json.Unmarshal(data, &f.doc); err != nil {
		return fmt.Errorf("%w: parse %s: %v", common.ErrStorage, f.path, err)
	}
	f.loaded = true
	return nil
}

func (f *FolderStore) save(ctx context.Context) error {
	f.doc.Version = 1
	f.doc.LastModified = f.clock.Now().Unix()

	data, err := json.Marshal(f.doc)
	if err != nil {
		return fmt.Errorf("encode folder document: %w", err)
	}

	ok, err := f.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil || !ok {
		return fmt.Errorf("%w: lock %s: %v", common.ErrStorage, f.path, err)
	}
	defer f.lock.Unlock()

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrStorage, f.path, err)
	}
	return nil
}

