package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	file := fs.String("file", "", "path to the practice recording")
	title := fs.String("title", "", "video title (defaults to the file name)")
	brocade := fs.String("brocade", "", "brocade exercise type, e.g. FIRST..EIGHTH")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" && fs.NArg() == 1 {
		*file = fs.Arg(0)
	}
	if strings.TrimSpace(*file) == "" {
		return fmt.Errorf("usage: baduanjin-watch upload --file <path> [--title t] [--brocade type]")
	}
	if _, err := os.Stat(*file); err != nil {
		return fmt.Errorf("upload file: %w", err)
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := env.authedClient()
	if err != nil {
		return err
	}

	videoTitle := strings.TrimSpace(*title)
	if videoTitle == "" {
		base := filepath.Base(*file)
		videoTitle = strings.TrimSuffix(base, filepath.Ext(base))
	}

	video, err := client.UploadVideo(*file, videoTitle, strings.TrimSpace(*brocade))
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(video)
	}
	fmt.Printf("uploaded video %d: %s\n", video.ID, video.Title)
	fmt.Printf("start analysis with: baduanjin-watch analyze %d\n", video.ID)
	return nil
}
