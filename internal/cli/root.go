package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	var err error
	switch args[0] {
	case "login":
		err = runLogin(args[1:])
	case "logout":
		err = runLogout(args[1:])
	case "videos":
		err = runVideos(args[1:])
	case "upload":
		err = runUpload(args[1:])
	case "analyze":
		err = runAnalyze(args[1:])
	case "convert-audio":
		err = runConvertAudio(args[1:])
	case "quick-convert":
		err = runQuickConvert(args[1:])
	case "watch":
		err = runWatch(args[1:])
	case "status":
		err = runStatus(args[1:])
	case "reset":
		err = runReset(args[1:])
	case "delete":
		err = runDelete(args[1:])
	case "settings":
		err = runSettings(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	return err
}

func printRootUsage() {
	fmt.Println("baduanjin-watch: job watcher for the Baduanjin analysis platform")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  baduanjin-watch login --server http://localhost:8000")
	fmt.Println("  baduanjin-watch upload --file practice.mp4 --title \"Morning practice\"")
	fmt.Println("  baduanjin-watch analyze <video-id> --watch")
	fmt.Println()
	fmt.Println("Account Commands:")
	fmt.Println("  login          authenticate against the backend and store the session")
	fmt.Println("  logout         clear the stored session")
	fmt.Println()
	fmt.Println("Video Commands:")
	fmt.Println("  videos         list your videos (interactive browser on a TTY)")
	fmt.Println("  upload         upload a practice recording")
	fmt.Println("  delete         delete a video")
	fmt.Println()
	fmt.Println("Job Commands:")
	fmt.Println("  analyze        start pose analysis for a video")
	fmt.Println("  convert-audio  start English audio conversion")
	fmt.Println("  quick-convert  start web-format conversion")
	fmt.Println("  watch          live view of in-flight jobs until they finish")
	fmt.Println("  status         one-shot status refresh for a video")
	fmt.Println("  reset          return a stuck video to a non-processing state")
	fmt.Println()
	fmt.Println("Other Commands:")
	fmt.Println("  settings       show or change poll interval, timeouts and server URL")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Poll interval and timeouts live in settings.json / BADUANJIN_* env vars")
}
