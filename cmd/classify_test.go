package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const testReport = `<?xml version="1.0"?>
<coverage>
  <summary statement="60.0" branch="40.0"/>
  <function name="f" file="C:\build\src\mod\file.c" covered="1,2" uncovered="10,11,12"/>
</coverage>`

// setupProject builds a temp project tree with a source file and report,
// and points viper at it with a temp database.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	local := filepath.Join(root, "src", "mod", "file.c")
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local, []byte(strings.Repeat("x\n", 15)), 0o644); err != nil {
		t.Fatal(err)
	}
	reportPath := filepath.Join(root, "report.xml")
	if err := os.WriteFile(reportPath, []byte(testReport), 0o644); err != nil {
		t.Fatal(err)
	}

	// The tests call RunE functions directly, bypassing Execute, so the
	// commands never receive a context from cobra; give them one here.
	for _, c := range []*cobra.Command{classifyCmd, declassifyCmd, reportCmd, loadCmd} {
		c.SetContext(context.Background())
	}

	viper.Reset()
	viper.Set("search_root", root)
	viper.Set("report_path", reportPath)
	viper.Set("db_path", filepath.Join(root, "triage.db"))
	t.Cleanup(viper.Reset)
	return local
}

func TestClassifyThenReport_Flow(t *testing.T) {
	local := setupProject(t)

	var out bytes.Buffer
	classifyCmd.SetOut(&out)
	if err := classifyCmd.Flags().Set("category", "document"); err != nil {
		t.Fatal(err)
	}
	if err := classifyCmd.Flags().Set("reason", "legacy"); err != nil {
		t.Fatal(err)
	}
	if err := runClassify(classifyCmd, []string{local, "11"}); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !strings.Contains(out.String(), "classified 3 line(s)") {
		t.Errorf("classify output = %q", out.String())
	}

	// A fresh invocation reads the classification back from the database.
	out.Reset()
	reportCmd.SetOut(&out)
	if err := runReport(reportCmd, nil); err != nil {
		t.Fatalf("report: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "### legacy") {
		t.Errorf("report missing reason group:\n%s", got)
	}
	if !strings.Contains(got, "10-12") {
		t.Errorf("report missing classified range:\n%s", got)
	}
}

func TestDeclassify_Flow(t *testing.T) {
	local := setupProject(t)

	var out bytes.Buffer
	classifyCmd.SetOut(&out)
	if err := classifyCmd.Flags().Set("category", "cover-planned"); err != nil {
		t.Fatal(err)
	}
	if err := classifyCmd.Flags().Set("line-only", "true"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = classifyCmd.Flags().Set("line-only", "false") })
	if err := runClassify(classifyCmd, []string{local, "10"}); err != nil {
		t.Fatalf("classify: %v", err)
	}

	out.Reset()
	declassifyCmd.SetOut(&out)
	if err := runDeclassify(declassifyCmd, []string{local, "10"}); err != nil {
		t.Fatalf("declassify: %v", err)
	}
	if !strings.Contains(out.String(), "removed") {
		t.Errorf("declassify output = %q", out.String())
	}

	out.Reset()
	if err := runDeclassify(declassifyCmd, []string{local, "10"}); err != nil {
		t.Fatalf("second declassify: %v", err)
	}
	if !strings.Contains(out.String(), "no classification") {
		t.Errorf("second declassify output = %q", out.String())
	}
}

func TestLoad_PrintsSummary(t *testing.T) {
	local := setupProject(t)
	_ = local

	var out bytes.Buffer
	loadCmd.SetOut(&out)
	if err := runLoad(loadCmd, []string{viper.GetString("report_path")}); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Coverage Summary") || !strings.Contains(got, "1 resolved") {
		t.Errorf("load output:\n%s", got)
	}
}
