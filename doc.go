// Package snapreaper seeks to save you money on your AWS bill by
// deleting old EBS snapshots whose source volume is gone or is no
// longer attached to anything.
//
// Snapshots are easy to forget. People terminate infrastructure, the
// volumes get deleted, and the snapshots taken from those volumes sit
// around accruing GB-month charges for years. snapreaper is the
// scheduled janitor for that: every invocation it lists the snapshots
// owned by the calling account, keeps anything younger than 30 days,
// and deletes the rest when nothing is backing them anymore.
//
// Deletion Rules
//
// A snapshot is deleted when it is older than 30 days AND one of the
// following is true:
//
//   * it carries no volume reference at all
//   * its volume still exists but has an empty attachment list
//   * its volume no longer exists (the lookup comes back
//     InvalidVolume.NotFound)
//
// Snapshots younger than 30 days are never touched. Snapshots whose
// volume is still attached are left alone silently. Deletion is
// irreversible, so read the rules twice before wiring this up to a
// schedule.
//
// Each invocation is a single linear pass with no state carried
// between runs. Re-running after a clean pass deletes nothing further
// because the deleted snapshots are simply absent from the next
// listing. Any API failure other than the volume-not-found case above
// aborts the pass immediately; the next scheduled run re-evaluates
// everything from a fresh listing.
//
// Usage
//
// Create a snapreaper.ReaperInput, pass it to New, and call Run on the
// returned Reaper. Credentials and region come from the AWS session in
// the usual ambient way. After Run completes the Deleted field holds
// the IDs of every snapshot removed during the pass.
//
// Sample
//
// Below is a sample main package you could use to run a sweep from the
// command line. The cmd/snapreaper-lambda directory in this repository
// wraps the same call in a Lambda handler for scheduled execution.
//
//   package main
//
//   import (
//   	"github.com/aws/aws-sdk-go/aws/session"
//   	"github.com/cloudjanitor/snapreaper"
//   )
//
//   func main() {
//   	sess := session.Must(session.NewSession())
//   	rpr, err := snapreaper.New(&snapreaper.ReaperInput{
//   		Session: sess,
//   	})
//   	if err != nil { panic(err) }
//   	err = rpr.Run()
//   	if err != nil { panic(err) }
//   }
package snapreaper
