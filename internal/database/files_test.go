package database

import (
	"context"
	"filevault/internal/models"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func createTestFolder(t *testing.T, userID int64, name string, parentID *int64) *models.FileNode {
	t.Helper()

	folder, err := testStore.CreateFile(context.Background(), CreateFileParams{
		UserID:   userID,
		Name:     name,
		FileType: models.FileTypeFolder,
		ParentID: parentID,
	})
	require.NoError(t, err)
	require.NotNil(t, folder)
	return folder
}

func TestCreateFile_FolderAndLeaf(t *testing.T) {
	userID := createTestUser(t, uniqueEmail("files"))

	folder := createTestFolder(t, userID, "Photos", nil)
	require.Equal(t, models.FileTypeFolder, folder.FileType)
	require.Nil(t, folder.ParentID)
	require.Nil(t, folder.LocalPath)

	localPath := "/tmp/files_manager/abc"
	file, err := testStore.CreateFile(context.Background(), CreateFileParams{
		UserID:    userID,
		Name:      "cat.png",
		FileType:  models.FileTypeImage,
		ParentID:  &folder.ID,
		LocalPath: &localPath,
	})
	require.NoError(t, err)
	require.NotNil(t, file.ParentID)
	require.Equal(t, folder.ID, *file.ParentID)
	require.NotNil(t, file.LocalPath)
	require.Equal(t, localPath, *file.LocalPath)
	require.False(t, file.IsPublic)
}

func TestCreateFile_ParentMissing(t *testing.T) {
	userID := createTestUser(t, uniqueEmail("noparent"))

	missing := int64(999999)
	_, err := testStore.CreateFile(context.Background(), CreateFileParams{
		UserID:   userID,
		Name:     "orphan",
		FileType: models.FileTypeFolder,
		ParentID: &missing,
	})
	require.ErrorIs(t, err, ErrParentNotFound)
}

func TestCreateFile_ParentNotFolder(t *testing.T) {
	userID := createTestUser(t, uniqueEmail("badparent"))

	localPath := "/tmp/files_manager/leaf"
	leaf, err := testStore.CreateFile(context.Background(), CreateFileParams{
		UserID:    userID,
		Name:      "notes.txt",
		FileType:  models.FileTypeFile,
		LocalPath: &localPath,
	})
	require.NoError(t, err)

	_, err = testStore.CreateFile(context.Background(), CreateFileParams{
		UserID:   userID,
		Name:     "inside_a_file",
		FileType: models.FileTypeFolder,
		ParentID: &leaf.ID,
	})
	require.ErrorIs(t, err, ErrParentNotFolder)
}

func TestGetFileByID(t *testing.T) {
	userID := createTestUser(t, uniqueEmail("getfile"))
	folder := createTestFolder(t, userID, "Docs", nil)

	found, err := testStore.GetFileByID(context.Background(), folder.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, folder.ID, found.ID)

	missing, err := testStore.GetFileByID(context.Background(), 999999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestListFiles_Pagination(t *testing.T) {
	userID := createTestUser(t, uniqueEmail("paging"))
	folder := createTestFolder(t, userID, "Bulk", nil)

	for i := 0; i < 25; i++ {
		_, err := testStore.CreateFile(context.Background(), CreateFileParams{
			UserID:   userID,
			Name:     fmt.Sprintf("sub_%02d", i),
			FileType: models.FileTypeFolder,
			ParentID: &folder.ID,
		})
		require.NoError(t, err)
	}

	page0, err := testStore.ListFiles(context.Background(), userID, &folder.ID, 0)
	require.NoError(t, err)
	require.Len(t, page0, 20)

	page1, err := testStore.ListFiles(context.Background(), userID, &folder.ID, 1)
	require.NoError(t, err)
	require.Len(t, page1, 5)

	page2, err := testStore.ListFiles(context.Background(), userID, &folder.ID, 2)
	require.NoError(t, err)
	require.Empty(t, page2)

	// Insertion order must be stable across calls.
	require.Equal(t, "sub_00", page0[0].Name)
	require.Equal(t, "sub_20", page1[0].Name)
}

func TestListFiles_RootOnlyListsOwnNodes(t *testing.T) {
	userA := createTestUser(t, uniqueEmail("owner_a"))
	userB := createTestUser(t, uniqueEmail("owner_b"))

	createTestFolder(t, userA, "A_Root", nil)

	filesB, err := testStore.ListFiles(context.Background(), userB, nil, 0)
	require.NoError(t, err)
	for _, f := range filesB {
		require.Equal(t, userB, f.UserID)
	}
}

func TestSetFilePublic(t *testing.T) {
	ownerID := createTestUser(t, uniqueEmail("visowner"))
	strangerID := createTestUser(t, uniqueEmail("stranger"))
	folder := createTestFolder(t, ownerID, "Private", nil)

	// Owner can publish.
	updated, err := testStore.SetFilePublic(context.Background(), folder.ID, ownerID, true)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.True(t, updated.IsPublic)

	// A non-owner gets a miss, same as a missing node.
	denied, err := testStore.SetFilePublic(context.Background(), folder.ID, strangerID, false)
	require.NoError(t, err)
	require.Nil(t, denied)

	missing, err := testStore.SetFilePublic(context.Background(), 999999, ownerID, true)
	require.NoError(t, err)
	require.Nil(t, missing)

	// Owner can unpublish again.
	updated, err = testStore.SetFilePublic(context.Background(), folder.ID, ownerID, false)
	require.NoError(t, err)
	require.False(t, updated.IsPublic)
}
