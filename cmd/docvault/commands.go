package main

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/docvault/internal/config"
	"github.com/kalambet/docvault/internal/ingest"
)

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Scan a directory and show what would be ingested",
	Long: `Scan a directory for supported documents and show the category
breakdown without uploading anything.

Examples:
  docvault scan ./tender-docs
  docvault scan ./tender-docs --no-categorize`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCategorize, _ := cmd.Flags().GetBool("no-categorize")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		resp, err := client.post("/api/files/bulk_upload", map[string]any{
			"source_directory": abs,
			"scan_only":        true,
			"auto_categorize":  !noCategorize,
		})
		if err != nil {
			return err
		}

		var result struct {
			Total        int                     `json:"total"`
			Files        []ingest.FileDescriptor `json:"files"`
			Distribution map[string]int          `json:"category_distribution"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Found %d files", result.Total)
		names := make([]string, 0, len(result.Distribution))
		for name := range result.Distribution {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			printStatus(name, "%d", result.Distribution[name])
		}
		return nil
	},
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload documents to a store",
	Long: `Upload a single file or a whole directory to a document store.

Examples:
  docvault upload --store tenders --dir ./tender-docs
  docvault upload --store tenders --file ./rfp.pdf --category requirements`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storeName, _ := cmd.Flags().GetString("store")
		dir, _ := cmd.Flags().GetString("dir")
		file, _ := cmd.Flags().GetString("file")
		category, _ := cmd.Flags().GetString("category")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		if storeName == "" {
			return fmt.Errorf("--store is required")
		}
		if (dir == "") == (file == "") {
			return fmt.Errorf("exactly one of --dir or --file is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if file != "" {
			return uploadSingle(client, storeName, file, category)
		}

		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}

		printStep("Uploading %s to store %q...", abs, storeName)
		resp, err := client.post("/api/files/bulk_upload", map[string]any{
			"source_directory": abs,
			"store_name":       storeName,
			"batch_size":       batchSize,
		})
		if err != nil {
			return err
		}

		var result struct {
			Total        int                  `json:"total"`
			SuccessCount int                  `json:"success_count"`
			FailedCount  int                  `json:"failed_count"`
			SkippedCount int                  `json:"skipped_count"`
			Files        []ingest.FileOutcome `json:"files"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Uploaded %d of %d files (%d skipped, %d failed)",
			result.SuccessCount, result.Total, result.SkippedCount, result.FailedCount)
		for _, f := range result.Files {
			if f.Status == ingest.StatusFailed {
				printError("%s: %s", f.Filename, f.Error)
			}
		}
		if result.FailedCount > 0 {
			return fmt.Errorf("%d uploads failed", result.FailedCount)
		}
		return nil
	},
}

func uploadSingle(client *apiClient, storeName, path, category string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	mw.WriteField("store_name", storeName)
	if category != "" {
		mw.WriteField("category", category)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest("POST", client.baseURL+"/api/files/upload", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable — is docvault running? (%w)", err)
	}

	var result struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
		Category string `json:"category"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	if result.Status == ingest.StatusSkipped {
		printWarning("%s already exists in store %q", result.Filename, storeName)
		return nil
	}
	printSuccess("Uploaded %s (category: %s)", result.Filename, result.Category)
	return nil
}

func init() {
	scanCmd.Flags().Bool("no-categorize", false, "skip category detection")

	uploadCmd.Flags().String("store", "", "target store name")
	uploadCmd.Flags().String("dir", "", "directory to upload")
	uploadCmd.Flags().String("file", "", "single file to upload")
	uploadCmd.Flags().String("category", "", "category override for single file uploads")
	uploadCmd.Flags().Int("batch-size", 0, "files per transaction window (default 10)")
}

// --- stores ---

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage document stores",
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List document stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/api/files/stores")
		if err != nil {
			return err
		}

		var payload struct {
			Stores []struct {
				ID            string `json:"id"`
				Name          string `json:"name"`
				DocumentCount int    `json:"document_count"`
			} `json:"stores"`
		}
		if err := decodeJSON(resp, &payload); err != nil {
			return err
		}

		if len(payload.Stores) == 0 {
			printWarning("No stores yet. Create one with: docvault stores create <name>")
			return nil
		}
		for _, s := range payload.Stores {
			printStatus(s.Name, "%d documents (%s)", s.DocumentCount, s.ID)
		}
		return nil
	},
}

var storesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a document store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/api/files/stores", map[string]string{"store_name": args[0]})
		if err != nil {
			return err
		}

		var rec struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		printSuccess("Created store %q (%s)", rec.Name, rec.ID)
		return nil
	},
}

var storesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document store and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This deletes the store record and all its document records. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/api/files/stores/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Store deleted")
		return nil
	},
}

func init() {
	storesDeleteCmd.Flags().Bool("confirm", false, "confirm store deletion")
	storesCmd.AddCommand(storesListCmd)
	storesCmd.AddCommand(storesCreateCmd)
	storesCmd.AddCommand(storesDeleteCmd)
}

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against a document store",
	Long: `Ask a question against an indexed document store.

Examples:
  docvault query "What are the mandatory requirements?" --store tenders
  docvault query "Summarize our pricing" --store tenders --mode analysis
  docvault query "List compliance gaps" --store tenders --mode checklist --categories compliance,policies`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storeName, _ := cmd.Flags().GetString("store")
		mode, _ := cmd.Flags().GetString("mode")
		categoriesStr, _ := cmd.Flags().GetString("categories")

		if storeName == "" {
			return fmt.Errorf("--store is required")
		}

		var categories []string
		if categoriesStr != "" {
			categories = strings.Split(categoriesStr, ",")
			for i := range categories {
				categories[i] = strings.TrimSpace(categories[i])
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"question":   strings.Join(args, " "),
			"store_name": storeName,
			"mode":       mode,
		}
		if categories != nil {
			req["categories"] = categories
		}

		resp, err := client.post("/api/query", req)
		if err != nil {
			return err
		}

		var result struct {
			Answer    string `json:"answer"`
			ModeName  string `json:"mode_name"`
			ElapsedMS int64  `json:"elapsed_ms"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStep("%s (%dms)", result.ModeName, result.ElapsedMS)
		fmt.Println(result.Answer)
		return nil
	},
}

func init() {
	queryCmd.Flags().String("store", "", "store name to query")
	queryCmd.Flags().String("mode", "quick", "response mode: tender, quick, analysis, strategy, checklist")
	queryCmd.Flags().String("categories", "", "comma-separated category filter")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
