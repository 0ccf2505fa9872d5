package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"baduanjin-watch/internal/model"
	"baduanjin-watch/internal/poller"
)

func runAnalyze(args []string) error {
	return runStartJob("analyze", model.KindAnalysis, args)
}

func runConvertAudio(args []string) error {
	return runStartJob("convert-audio", model.KindAudioConversion, args)
}

func runQuickConvert(args []string) error {
	return runStartJob("quick-convert", model.KindWebConversion, args)
}

// runStartJob kicks off a backend job and queues it for watching. A failed
// kick-off is reported but the job is still queued: the backend frequently
// accepts the work and then times the HTTP response out, so polling is the
// only way to learn what actually happened.
func runStartJob(name string, kind model.Kind, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	watch := fs.Bool("watch", false, "poll until the job finishes")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: baduanjin-watch %s [--watch] <video-id>", name)
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

	switch kind {
	case model.KindAnalysis:
		err = client.StartAnalysis(id)
	case model.KindAudioConversion:
		err = client.StartAudioConversion(id)
	case model.KindWebConversion:
		err = client.StartWebConversion(id)
	}
	if err != nil {
		fmt.Printf("warning: start request failed (%v); polling anyway in case the job started\n", err)
	} else {
		fmt.Printf("started %s for video %d\n", kind, id)
	}

	if err := queueSessionJob(&env, id, kind); err != nil {
		return err
	}

	if *watch {
		return runWatch([]string{strconv.FormatInt(id, 10)})
	}
	fmt.Println("follow progress with: baduanjin-watch watch")
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	kindFlag := fs.String("kind", string(model.KindAnalysis), "job kind: analysis, audio_conversion or web_conversion")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fix := fs.Bool("fix", false, "force-complete when artifacts exist but the status lags")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: baduanjin-watch status [--kind k] [--fix] <video-id>")
	}
	id, err := parseVideoID(fs.Arg(0))
	if err != nil {
		return err
	}
	kind := model.Kind(strings.TrimSpace(*kindFlag))
	if !model.IsKnownKind(kind) {
		return fmt.Errorf("unknown job kind %q", *kindFlag)
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := env.authedClient()
	if err != nil {
		return err
	}

	var st poller.Status
	switch kind {
	case model.KindAnalysis, model.KindWebConversion:
		video, err := client.GetVideo(id)
		if err != nil {
			return err
		}
		st = poller.Status{
			ProcessingStatus:  video.ProcessingStatus,
			AnalyzedVideoPath: video.AnalyzedVideoPath,
			KeypointsPath:     video.KeypointsPath,
			OwnerID:           video.UserID,
		}
	case model.KindAudioConversion:
		status, err := client.GetConversionStatus(id)
		if err != nil {
			return err
		}
		st = poller.Status{ProcessingStatus: status}
	}

	verdict, soft := poller.Reconcile(kind, st, env.sess.UserID)
	if verdict == poller.VerdictForeign {
		// Same answer the backend gives for an id that does not exist.
		return fmt.Errorf("video %d not found", id)
	}

	if soft && *fix {
		if err := client.ForceComplete(id); err != nil {
			fmt.Printf("warning: force-complete failed: %v\n", err)
		} else {
			fmt.Printf("forced status to completed for video %d\n", id)
		}
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"video_id":          id,
			"kind":              kind,
			"verdict":           verdict.String(),
			"processing_status": st.ProcessingStatus,
			"artifacts_present": strings.TrimSpace(st.AnalyzedVideoPath) != "" && strings.TrimSpace(st.KeypointsPath) != "",
		})
	}

	fmt.Printf("video %d (%s): %s\n", id, kind, verdict)
	if st.ProcessingStatus != "" {
		fmt.Printf("  backend status: %s\n", st.ProcessingStatus)
	}
	if soft {
		if *fix {
			fmt.Println("  artifacts exist; backend status was corrected")
		} else {
			fmt.Println("  artifacts exist but the backend status lags (rerun with --fix to correct it)")
		}
	}
	return nil
}

func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: baduanjin-watch reset <video-id>")
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
	if err := client.ResetStatus(id); err != nil {
		return err
	}
	fmt.Printf("reset processing status for video %d\n", id)
	return nil
}

// queueSessionJob records a started job so a later 'watch' run resumes it.
// One entry per (video, kind); restarting a job resets its clock.
func queueSessionJob(env *appEnv, videoID int64, kind model.Kind) error {
	jobs := env.sess.Jobs[:0]
	for _, j := range env.sess.Jobs {
		if j.VideoID == videoID && j.Kind == kind {
			continue
		}
		jobs = append(jobs, j)
	}
	env.sess.Jobs = append(jobs, model.Job{
		VideoID: videoID,
		Kind:    kind,
		Status:  model.StatusPending,
	})
	return env.saveSession()
}
