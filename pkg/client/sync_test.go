package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkloom/pkg/errs"
	"linkloom/pkg/models"
)

// fakeAPI is an in-memory CollectionAPI with switchable failure modes.
type fakeAPI struct {
	folders  []models.Folder
	failPut  error
	failGet  error
	getCalls int
	putCalls int
}

func (f *fakeAPI) GetLinks(ctx context.Context) ([]models.Folder, error) {
	f.getCalls++
	if f.failGet != nil {
		return nil, f.failGet
	}
	return models.CloneFolders(f.folders), nil
}

func (f *fakeAPI) PutLinks(ctx context.Context, folders []models.Folder) ([]models.Folder, error) {
	f.putCalls++
	if f.failPut != nil {
		return nil, f.failPut
	}
	f.folders = models.CloneFolders(folders)
	return models.CloneFolders(f.folders), nil
}

func newSyncForTest(api *fakeAPI) *SyncClient {
	return NewSyncClient(api, nil, nil, nil)
}

func folderNames(folders []models.Folder) []string {
	out := make([]string, len(folders))
	for i, f := range folders {
		out[i] = f.Name
	}
	return out
}

func TestLoadReplacesLocalState(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "work", Links: []models.Link{}}}}
	sync := newSyncForTest(api)

	require.NoError(t, sync.Load(context.Background()))
	assert.Equal(t, []string{"work"}, folderNames(sync.Folders()))
}

func TestLoadFailureKeepsPreviousState(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "work", Links: []models.Link{}}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	api.failGet = fmt.Errorf("%w: connection refused", errs.ErrNetwork)
	err := sync.Load(context.Background())
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.Equal(t, []string{"work"}, folderNames(sync.Folders()))
}

func TestAddFolderPersistsOptimistically(t *testing.T) {
	api := &fakeAPI{}
	sync := newSyncForTest(api)

	require.NoError(t, sync.AddFolder(context.Background(), "reading"))

	assert.Equal(t, []string{"reading"}, folderNames(sync.Folders()))
	assert.Equal(t, []string{"reading"}, folderNames(api.folders))
	assert.Equal(t, 1, api.putCalls)
}

func TestAddFolderRejectsEmptyName(t *testing.T) {
	api := &fakeAPI{}
	var messages []string
	sync := NewSyncClient(api, nil, func(m string) { messages = append(messages, m) }, nil)

	err := sync.AddFolder(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"Please enter a collection name"}, messages)
	assert.Zero(t, api.putCalls)
}

func TestFailedAddFolderUndoesLocalState(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "work", Links: []models.Link{}}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	api.failPut = fmt.Errorf("%w: connection refused", errs.ErrNetwork)
	err := sync.AddFolder(context.Background(), "doomed")

	assert.ErrorIs(t, err, errs.ErrNetwork)
	// the optimistic append is rolled back, no reload needed
	assert.Equal(t, []string{"work"}, folderNames(sync.Folders()))
	assert.Equal(t, 1, api.getCalls)
}

func TestAddLinkNormalizesURL(t *testing.T) {
	api := &fakeAPI{}
	sync := newSyncForTest(api)
	require.NoError(t, sync.AddFolder(context.Background(), "work"))

	require.NoError(t, sync.AddLink(context.Background(), 0, "docs", "docs.example.com"))

	folders := sync.Folders()
	require.Len(t, folders[0].Links, 1)
	assert.Equal(t, "https://docs.example.com", folders[0].Links[0].URL)
}

func TestAddLinkValidation(t *testing.T) {
	api := &fakeAPI{}
	var messages []string
	sync := NewSyncClient(api, nil, func(m string) { messages = append(messages, m) }, nil)
	require.NoError(t, sync.AddFolder(context.Background(), "work"))

	t.Run("missing fields", func(t *testing.T) {
		err := sync.AddLink(context.Background(), 0, "", "example.com")
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Contains(t, messages, "Please fill in both fields")
	})

	t.Run("folder index out of range", func(t *testing.T) {
		before := api.putCalls
		err := sync.AddLink(context.Background(), 5, "docs", "example.com")
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, before, api.putCalls)
	})
}

func TestDeleteLinkRequiresConfirmation(t *testing.T) {
	api := &fakeAPI{}
	declined := NewSyncClient(api, nil, nil, func(string) bool { return false })
	require.NoError(t, declined.AddFolder(context.Background(), "work"))
	require.NoError(t, declined.AddLink(context.Background(), 0, "docs", "example.com"))

	before := api.putCalls
	require.NoError(t, declined.DeleteLink(context.Background(), 0, 0))

	// declined: nothing changed, nothing persisted
	assert.Len(t, declined.Folders()[0].Links, 1)
	assert.Equal(t, before, api.putCalls)
}

func TestDeleteLinkRemovesAndPersists(t *testing.T) {
	api := &fakeAPI{}
	sync := newSyncForTest(api)
	require.NoError(t, sync.AddFolder(context.Background(), "work"))
	require.NoError(t, sync.AddLink(context.Background(), 0, "a", "a.example.com"))
	require.NoError(t, sync.AddLink(context.Background(), 0, "b", "b.example.com"))

	require.NoError(t, sync.DeleteLink(context.Background(), 0, 0))

	folders := sync.Folders()
	require.Len(t, folders[0].Links, 1)
	assert.Equal(t, "b", folders[0].Links[0].Title)
	assert.Equal(t, "b", api.folders[0].Links[0].Title)
}

func TestFailedDeleteReloadsFromServer(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{
		{Name: "work", Links: []models.Link{{Title: "a", URL: "https://a"}}},
		{Name: "home", Links: []models.Link{}},
	}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	api.failPut = fmt.Errorf("%w: boom", errs.ErrInternal)
	getCallsBefore := api.getCalls

	err := sync.DeleteFolder(context.Background(), 0)
	assert.ErrorIs(t, err, errs.ErrInternal)

	// removal compensates by reloading the authoritative state
	assert.Greater(t, api.getCalls, getCallsBefore)
	assert.Equal(t, []string{"work", "home"}, folderNames(sync.Folders()))
}

func TestFailedDeleteFallsBackToSavedStateWhenReloadFails(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "work", Links: []models.Link{}}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	api.failPut = fmt.Errorf("%w: down", errs.ErrNetwork)
	api.failGet = fmt.Errorf("%w: down", errs.ErrNetwork)

	err := sync.DeleteFolder(context.Background(), 0)
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.Equal(t, []string{"work"}, folderNames(sync.Folders()))
}

func TestReorder(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "F0"}, {Name: "F1"}, {Name: "F2"}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	require.NoError(t, sync.Reorder(context.Background(), 2, 0))

	assert.Equal(t, []string{"F2", "F0", "F1"}, folderNames(sync.Folders()))
	assert.Equal(t, []string{"F2", "F0", "F1"}, folderNames(api.folders))
}

func TestReorderSameIndexIsNoop(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "F0"}, {Name: "F1"}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	before := api.putCalls
	require.NoError(t, sync.Reorder(context.Background(), 1, 1))
	assert.Equal(t, before, api.putCalls)
}

func TestReorderOutOfRange(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "F0"}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	err := sync.Reorder(context.Background(), 0, 5)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"F0"}, folderNames(sync.Folders()))
}

func TestImportReplacesCollection(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "old"}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	payload := `[{"name":"imported","links":[{"title":"docs","url":"docs.example.com"}]}]`
	require.NoError(t, sync.Import(context.Background(), strings.NewReader(payload)))

	folders := sync.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, "imported", folders[0].Name)
	assert.Equal(t, "https://docs.example.com", folders[0].Links[0].URL)
	assert.Equal(t, "imported", api.folders[0].Name)
}

func TestImportRejectsNonSequenceBeforePersisting(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"object", `{"name":"work"}`},
		{"scalar", `42`},
		{"empty", ``},
		{"malformed array", `[{"name":}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{folders: []models.Folder{{Name: "keep", Links: []models.Link{}}}}
			var messages []string
			sync := NewSyncClient(api, nil, func(m string) { messages = append(messages, m) }, nil)
			require.NoError(t, sync.Load(context.Background()))
			before := api.putCalls

			err := sync.Import(context.Background(), strings.NewReader(tt.payload))

			assert.ErrorIs(t, err, errs.ErrValidation)
			assert.Equal(t, []string{"Invalid file format"}, messages)
			assert.Equal(t, before, api.putCalls)
			assert.Equal(t, []string{"keep"}, folderNames(sync.Folders()))
		})
	}
}

func TestExportIsLocalOnly(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{
		{Name: "work", Links: []models.Link{{Title: "docs", URL: "https://docs.example.com"}}},
	}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	getCalls, putCalls := api.getCalls, api.putCalls

	var buf bytes.Buffer
	require.NoError(t, sync.Export(&buf))

	assert.Equal(t, getCalls, api.getCalls)
	assert.Equal(t, putCalls, api.putCalls)

	var roundTrip []models.Folder
	require.NoError(t, json.Unmarshal(buf.Bytes(), &roundTrip))
	assert.Equal(t, sync.Folders(), roundTrip)
}

func TestFoldersReturnsCopy(t *testing.T) {
	api := &fakeAPI{folders: []models.Folder{{Name: "work", Links: []models.Link{}}}}
	sync := newSyncForTest(api)
	require.NoError(t, sync.Load(context.Background()))

	got := sync.Folders()
	got[0].Name = "mutated"

	assert.Equal(t, "work", sync.Folders()[0].Name)
}

func TestRendererSeesOptimisticState(t *testing.T) {
	api := &fakeAPI{}
	var renders [][]string
	sync := NewSyncClient(api, func(folders []models.Folder) {
		renders = append(renders, folderNames(folders))
	}, nil, nil)

	require.NoError(t, sync.AddFolder(context.Background(), "work"))

	require.NotEmpty(t, renders)
	assert.Equal(t, []string{"work"}, renders[len(renders)-1])
}
