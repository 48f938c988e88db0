package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "vidgrab",
		Short: "Vidgrab CLI - Media download engine",
		Long:  `A command-line interface for downloading media from video sites.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(deleteCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Start a download job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		url := args[0]
		dest, _ := cmd.Flags().GetString("dest")
		container, _ := cmd.Flags().GetString("container")
		quality, _ := cmd.Flags().GetString("quality")
		audioOnly, _ := cmd.Flags().GetBool("audio")

		payload := map[string]interface{}{
			"url": url,
		}
		if dest != "" {
			payload["destination_dir"] = dest
		}
		if container != "" {
			payload["container"] = container
		}
		if quality != "" {
			payload["quality"] = quality
		}
		if audioOnly {
			payload["audio_only"] = true
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/jobs", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Job started!\n")
		fmt.Printf("ID: %s\n", result["id"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all download jobs",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/jobs"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var jobs []map[string]interface{}
		json.Unmarshal(body, &jobs)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tSTATUS\tPERCENT\tCREATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n",
				truncate(j["id"].(string), 8),
				truncate(j["url"].(string), 40),
				j["status"],
				j["percent"],
				j["created_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Get(serverURL + "/api/v1/jobs/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Job Statistics:")
		fmt.Printf("  Total:          %v\n", stats["total"])
		fmt.Printf("  Active:         %v\n", stats["active"])
		fmt.Printf("  Transferring:   %v\n", stats["transferring"])
		fmt.Printf("  PostProcessing: %v\n", stats["postprocessing"])
		fmt.Printf("  Succeeded:      %v\n", stats["succeeded"])
		fmt.Printf("  Failed:         %v\n", stats["failed"])
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get job details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		id := args[0]
		resp, err := http.Get(serverURL + "/api/v1/jobs/" + id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var job map[string]interface{}
		json.Unmarshal(body, &job)

		fmt.Printf("Job Details:\n")
		fmt.Printf("  ID:       %s\n", job["id"])
		fmt.Printf("  URL:      %s\n", job["url"])
		fmt.Printf("  Status:   %s\n", job["status"])
		fmt.Printf("  Quality:  %s\n", job["quality"])
		fmt.Printf("  Created:  %s\n", job["created_at"])
		if job["title"] != nil && job["title"] != "" {
			fmt.Printf("  Title:    %s\n", job["title"])
		}
		if job["percent"] != nil {
			fmt.Printf("  Percent:  %.1f\n", job["percent"])
		}
		if job["eta"] != nil && job["eta"] != "" {
			fmt.Printf("  ETA:      %s\n", job["eta"])
		}
		if job["file_path"] != nil && job["file_path"] != "" {
			fmt.Printf("  File:     %s\n", job["file_path"])
		}
		if job["failure_kind"] != nil && job["failure_kind"] != "" {
			fmt.Printf("  Failure:  %s (%s)\n", job["failure_kind"], job["error_message"])
		}
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a running job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		id := args[0]
		resp, err := http.Post(serverURL+"/api/v1/jobs/"+id+"/cancel", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Println("Cancellation requested")
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a finished job record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		id := args[0]
		req, _ := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/jobs/"+id, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Println("Job deleted")
	},
}

func init() {
	addCmd.Flags().StringP("dest", "d", "", "Destination directory")
	addCmd.Flags().StringP("container", "c", "", "Preferred container (mp4, flv, avi)")
	addCmd.Flags().StringP("quality", "q", "", "Quality ceiling (best, 2160, 1080, 720, 480)")
	addCmd.Flags().BoolP("audio", "a", false, "Extract audio only")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
