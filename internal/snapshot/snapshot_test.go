package snapshot_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/snapshot"
	"github.com/stretchr/testify/require"
)

const groupedDoc = `{
  "teams": [
    {
      "teamName": "Identity",
      "teamCode": "IDN",
      "classes": [
        {
          "className": "LoginTest",
          "packageName": "com.acme.auth",
          "repository": "auth",
          "methods": [
            {"testMethod": "login", "title": "Login works", "line": 12, "tags": ["smoke"]},
            {"testMethod": "logout", "title": null}
          ],
          "summary": {"totalMethods": 99, "annotatedMethods": 99, "coverageRate": 100}
        },
        {"className": "Empty", "repository": "auth", "methods": []}
      ],
      "summary": {"totalClasses": 2, "totalMethods": 2, "annotatedMethods": 1, "coverageRate": 50}
    }
  ],
  "summary": {"totalTeams": 1}
}`

func TestDecode_Grouped(t *testing.T) {
	tree, err := snapshot.Decode(strings.NewReader(groupedDoc))
	require.NoError(t, err)

	require.Len(t, tree.Teams, 1)
	require.Len(t, tree.Teams[0].Classes, 1, "empty classes are pruned")
	class := tree.Teams[0].Classes[0]
	require.Equal(t, coverage.Summary{TotalMethods: 2, AnnotatedMethods: 1, CoverageRate: 50}, class.Summary)
	require.Equal(t, "", class.Methods[1].Title, "null title decodes as not annotated")
	require.Equal(t, coverage.RootSummary{
		TotalTeams:            1,
		TotalClasses:          1,
		TotalMethods:          2,
		TotalAnnotatedMethods: 1,
		OverallCoverageRate:   50,
	}, tree.Summary)
}

func TestDecode_FlatList(t *testing.T) {
	doc := `  [
		{"repository": "auth", "testClass": "LoginTest", "testMethod": "login", "teamName": "Identity", "title": "x"},
		{"repository": "billing", "testClass": "RefundTest", "testMethod": "refund", "teamName": "Payments"}
	]`
	tree, err := snapshot.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tree.Teams, 2)
	require.Equal(t, 2, tree.Summary.TotalMethods)
}

func TestDecode_Empty(t *testing.T) {
	tree, err := snapshot.Decode(strings.NewReader(`{"teams": [], "summary": {}}`))
	require.NoError(t, err)
	require.Equal(t, &coverage.Tree{Teams: []coverage.TeamGroup{}}, tree)
}

func TestDecode_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":         "   ",
		"scalar":        "42",
		"missing teams": `{"summary": {}}`,
		"broken":        `{"teams": [`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := snapshot.Decode(strings.NewReader(doc))
			require.ErrorIs(t, err, snapshot.ErrInvalidSnapshot)
		})
	}
}

func TestEncodeDecodeFile(t *testing.T) {
	tree := coverage.Group([]coverage.Method{
		{TeamName: "Identity", Repository: "auth", TestClass: "LoginTest", TestMethod: "login", Title: "x", Tags: []string{"smoke"}},
		{TeamName: "Payments", Repository: "billing", TestClass: "RefundTest", TestMethod: "refund"},
	})

	var buf bytes.Buffer
	require.NoError(t, snapshot.Encode(&buf, tree))
	require.Contains(t, buf.String(), `"overallCoverageRate": 50`)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := snapshot.ReadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(tree, got); diff != "" {
		t.Fatalf("snapshot changed on disk (-want +got):\n%s", diff)
	}

	_, err = snapshot.ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	tree := coverage.Group([]coverage.Method{
		{TeamName: "Identity", Repository: "auth", TestClass: "LoginTest", TestMethod: "login", Title: "x"},
	})

	require.NoError(t, snapshot.WriteFile(path, coverage.Group(nil)))
	require.NoError(t, snapshot.WriteFile(path, tree))

	got, err := snapshot.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, tree.Summary, got.Summary)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")

	require.Error(t, snapshot.WriteFile(filepath.Join(dir, "missing", "snapshot.json"), tree))
}

func TestEncodeNil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, snapshot.Encode(&buf, nil))
	require.Contains(t, buf.String(), `"teams": []`)
}

func TestFlatten(t *testing.T) {
	tree, err := snapshot.Decode(strings.NewReader(groupedDoc))
	require.NoError(t, err)

	methods := snapshot.Flatten(tree)
	require.Len(t, methods, 2)
	for _, m := range methods {
		require.Equal(t, "Identity", m.TeamName)
		require.Equal(t, "IDN", m.TeamCode)
		require.Equal(t, "auth", m.Repository)
		require.Equal(t, "com.acme.auth", m.PackageName)
		require.Equal(t, "LoginTest", m.TestClass)
	}
	require.Equal(t, "login", methods[0].TestMethod)
	require.Nil(t, snapshot.Flatten(nil))

	// Regrouping the flat rows gives the same totals.
	require.Equal(t, tree.Summary, coverage.Group(methods).Summary)
}
