package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/dto"
	"github.com/crosslist/crosslist-be/internal/poller"
	"github.com/crosslist/crosslist-be/shared/logger"
)

// Command-line caller for the cross-listing API: dispatches a job, runs
// the bounded status poll, and walks the user through the verification
// resume when the worker hits a marketplace challenge.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	baseURL := flag.String("api", "http://localhost:8080", "Base URL of the crosslist API")
	userID := flag.String("user", "", "User id")
	listingID := flag.String("listing", "", "Listing id to cross-list")
	platform := flag.String("platform", "", "Target platform")
	maxAttempts := flag.Int("poll-attempts", 120, "Max status poll attempts")
	interval := flag.Duration("poll-interval", time.Second, "Interval between status polls")
	flag.Parse()

	if *userID == "" || *listingID == "" || *platform == "" {
		flag.Usage()
		return fmt.Errorf("user, listing and platform are required")
	}

	appLogger := logger.NewDefault()

	dispatch := func(ctx context.Context) (string, error) {
		return dispatchJob(ctx, *baseURL, *userID, *listingID, *platform)
	}

	reader := poller.NewHTTPStatusReader(*baseURL)
	p := poller.NewPoller(reader, poller.RetryPolicy{
		MaxAttempts: *maxAttempts,
		Interval:    *interval,
	}, appLogger.Logger)

	ctx := context.Background()

	jobID, err := dispatch(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("dispatched job %s, waiting for the extension...\n", jobID)

	result, err := p.Poll(ctx, jobID)
	if err != nil {
		return err
	}

	if result.Outcome == poller.OutcomeVerificationRequired {
		if !confirmVerification(result.ErrorMessage) {
			fmt.Println("aborted; re-run once the verification step is done")
			return nil
		}

		result, err = p.ResumeAfterVerification(ctx, dispatch)
		if err != nil {
			if errors.Is(err, domain.ErrVerificationRetryExhausted) {
				fmt.Println("the marketplace still requires verification; finish the step and re-run")
				return nil
			}
			return err
		}
	}

	return report(result)
}

func report(result *poller.Result) error {
	switch result.Outcome {
	case poller.OutcomeCompleted:
		fmt.Printf("job %s completed: listing is live\n", result.JobID)
		return nil
	case poller.OutcomeFailed:
		return fmt.Errorf("job %s failed: %s", result.JobID, result.ErrorMessage)
	case poller.OutcomeStillProcessing:
		fmt.Printf("job %s is still processing, check back later\n", result.JobID)
		return nil
	default:
		return fmt.Errorf("job %s ended in unexpected outcome %s", result.JobID, result.Outcome)
	}
}

func confirmVerification(prompt string) bool {
	if prompt == "" {
		prompt = "the marketplace requires a manual verification step"
	}
	fmt.Printf("verification required: %s\n", prompt)
	fmt.Print("press y once done to retry, anything else to abort: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func dispatchJob(ctx context.Context, baseURL, userID, listingID, platform string) (string, error) {
	body, err := json.Marshal(dto.DispatchJobRequest{
		UserID:    userID,
		ListingID: listingID,
		Platform:  platform,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var errResp dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return "", fmt.Errorf("dispatch rejected with status %d", resp.StatusCode)
		}
		if errResp.RequiresReconnect {
			return "", fmt.Errorf("dispatch rejected: %s (reconnect the extension or marketplace account first)", errResp.Error)
		}
		return "", fmt.Errorf("dispatch rejected: %s: %s", errResp.Error, errResp.Message)
	}

	var out dto.DispatchJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode dispatch response: %w", err)
	}

	return out.JobID, nil
}
