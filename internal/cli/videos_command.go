package cli

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"baduanjin-watch/internal/model"
)

func runVideos(args []string) error {
	fs := flag.NewFlagSet("videos", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	plain := fs.Bool("plain", false, "print a table instead of the interactive browser")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := env.authedClient()
	if err != nil {
		return err
	}

	if !*jsonOut && !*plain && stdinIsTTY() && stdoutIsTTY() {
		return runBrowse(env, client)
	}

	videos, err := client.ListVideos()
	if err != nil {
		return err
	}
	videos = ownVideos(videos, env.sess.UserID)

	if *jsonOut {
		return printJSON(videos)
	}
	printVideoTable(videos)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: baduanjin-watch delete [--yes] <video-id>")
	}
	id, err := parseVideoID(fs.Arg(0))
	if err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := env.authedClient()
	if err != nil {
		return err
	}

	if !*yes {
		ok, err := promptConfirm(fmt.Sprintf("delete video %d? This removes the recording and its analysis results. [y/N] ", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("delete cancelled")
			return nil
		}
	}

	if err := client.DeleteVideo(id); err != nil {
		return err
	}
	fmt.Printf("deleted video %d\n", id)
	return nil
}

// ownVideos keeps only the logged-in user's recordings. The backend already
// scopes list responses per account, but an admin token sees everything and
// the watcher must never act on someone else's uploads.
func ownVideos(videos []model.Video, userID int64) []model.Video {
	if userID == 0 {
		return videos
	}
	own := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if v.UserID == 0 || v.UserID == userID {
			own = append(own, v)
		}
	}
	return own
}

func printVideoTable(videos []model.Video) {
	if len(videos) == 0 {
		fmt.Println("no videos")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tBROCADE\tSTATUS\tUPLOADED")
	for _, v := range videos {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			v.ID,
			truncateRunes(v.Title, 36),
			v.BrocadeType,
			v.ProcessingStatus,
			v.UploadTimestamp,
		)
	}
	w.Flush()
}
