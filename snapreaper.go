package snapreaper

import (
	"errors"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/inconshreveable/log15"
)

// retentionDays is the fixed retention window. Snapshots younger than
// this are never deleted no matter what state their volume is in.
const retentionDays = 30

// A Reaper contains the properties and methods necessary to sweep an
// AWS account for stale EBS snapshots and delete the ones that are no
// longer backing anything. Create a ReaperInput object and pass it to
// this package's New method to get a new Reaper. From there call the
// Run method.
type Reaper struct {
	// After the Run method is complete Deleted will contain the ID
	// of every snapshot that was deleted during the pass, in the
	// order the snapshots were evaluated.
	Deleted []string

	account          string
	threshold        time.Time
	svcEc2           ec2iface.EC2API
	svcSts           stsiface.STSAPI
	runningInstances map[string]struct{}
	log              log15.Logger
}

// Run performs a single cleanup pass over the account's snapshots.
// It resolves the calling account, lists that account's snapshots and
// running instances, then walks the snapshots in the order the API
// returned them and deletes each one that is older than the retention
// window and orphaned per the rules in the package documentation.
//
// Run is fail-fast: the first API error other than a volume-not-found
// during volume lookup is returned immediately and the remaining
// snapshots are left unevaluated. There is no partial-progress
// tracking; the next invocation starts over from a fresh listing.
func (rpr *Reaper) Run() (err error) {
	rpr.threshold = time.Now().UTC().AddDate(0, 0, -retentionDays)
	rpr.log.Debug("set retention threshold", "threshold", rpr.threshold.Format("2006-01-02"))
	err = rpr.getAccountNumber()
	if err != nil {
		return err
	}
	snaps, err := rpr.getSnapshots()
	if err != nil {
		return err
	}
	err = rpr.getRunningInstances()
	if err != nil {
		return err
	}
	rpr.log.Info(
		"starting snapshot sweep",
		"snapshots", len(snaps),
		"running_instances", len(rpr.runningInstances),
	)
	for _, snap := range snaps {
		err = rpr.reap(snap)
		if err != nil {
			return err
		}
	}
	return err
}

// reap evaluates a single snapshot and deletes it if it meets the
// staleness-and-orphan criteria.
func (rpr *Reaper) reap(snap *ec2.Snapshot) (err error) {
	id := *snap.SnapshotId
	if !snap.StartTime.Before(rpr.threshold) {
		rpr.log.Info(
			"snapshot is not older than 30 days and will not be deleted",
			"snapshot", id,
		)
		return nil
	}
	if snap.VolumeId == nil || *snap.VolumeId == "" {
		return rpr.deleteSnapshot(id, "not attached to any volume")
	}
	dvi := ec2.DescribeVolumesInput{
		VolumeIds: []*string{snap.VolumeId},
	}
	results, err := rpr.svcEc2.DescribeVolumes(&dvi)
	switch classifyVolumeLookup(err) {
	case lookupNotFound:
		return rpr.deleteSnapshot(id, "volume not found")
	case lookupFailed:
		return err
	}
	if len(results.Volumes) == 0 {
		return rpr.deleteSnapshot(id, "volume not found")
	}
	if len(results.Volumes[0].Attachments) == 0 {
		// TODO: consult runningInstances here so a volume attached
		// to a stopped instance is treated the same as a detached
		// one; today only attachment-list emptiness gates the delete.
		return rpr.deleteSnapshot(id, "volume not attached to any instance")
	}
	// volume is still attached, leave the snapshot alone
	return nil
}

// deleteSnapshot deletes the given snapshot and records the decision.
func (rpr *Reaper) deleteSnapshot(id, reason string) (err error) {
	dsi := ec2.DeleteSnapshotInput{
		SnapshotId: &id,
	}
	_, err = rpr.svcEc2.DeleteSnapshot(&dsi)
	if err != nil {
		return err
	}
	rpr.Deleted = append(rpr.Deleted, id)
	rpr.log.Info("deleted snapshot", "snapshot", id, "reason", reason)
	return err
}

func (rpr *Reaper) getAccountNumber() (err error) {
	rpr.log.Debug("getting account number")
	gcii := sts.GetCallerIdentityInput{}
	gci, err := rpr.svcSts.GetCallerIdentity(&gcii)
	if err != nil {
		return err
	}
	rpr.account = *gci.Account
	return err
}

func (rpr *Reaper) getSnapshots() (snaps []*ec2.Snapshot, err error) {
	rpr.log.Debug("grabbing all snapshots owned by this account")
	var accounts []*string
	accounts = append(accounts, &rpr.account)
	dsi := ec2.DescribeSnapshotsInput{
		OwnerIds: accounts,
	}
	results, err := rpr.svcEc2.DescribeSnapshots(&dsi)
	if err != nil {
		return snaps, err
	}
	snaps = results.Snapshots
	return snaps, err
}

func (rpr *Reaper) getRunningInstances() (err error) {
	rpr.log.Debug("grabbing all running instance IDs")
	stateFilter := "instance-state-name"
	running := ec2.InstanceStateNameRunning
	input := ec2.DescribeInstancesInput{
		Filters: []*ec2.Filter{
			{
				Name:   &stateFilter,
				Values: []*string{&running},
			},
		},
	}
	results, err := rpr.svcEc2.DescribeInstances(&input)
	if err != nil {
		return err
	}
	rpr.runningInstances = instanceIDSet(results.Reservations)
	return err
}

// setDefaultLogger just sets up a logger for the Reaper set to Info
// and stdout by default.
func (rpr *Reaper) setDefaultLogger() {
	rpr.log = log15.New()
	rpr.log.SetHandler(
		log15.LvlFilterHandler(
			log15.LvlInfo,
			log15.StreamHandler(os.Stdout, log15.LogfmtFormat()),
		),
	)
}

// ReaperInput provides configuration inputs for starting a new Reaper.
type ReaperInput struct {
	// AWS Session to use for credentials for this sweep. Service
	// clients are constructed from it in the usual ambient way.
	//
	// Session is required unless both EC2 and STS are provided.
	Session *session.Session

	// EC2 overrides the EC2 client constructed from Session. Mainly
	// useful for substituting a fake client in tests.
	EC2 ec2iface.EC2API

	// STS overrides the STS client constructed from Session. Mainly
	// useful for substituting a fake client in tests.
	STS stsiface.STSAPI

	// Reaper uses log15 (https://github.com/inconshreveable/log15)
	// as an opinionated logging framework. If no Logger is provided
	// Reaper will set up its own handler to stdout at Info level.
	Logger *log15.Logger
}

// New returns a Reaper object whose Run method performs the cleanup
// pass. This method accepts a ReaperInput struct which can be used to
// set up the Reaper inputs. This method will set default values for
// any property that was not specified in the ReaperInput object.
func New(input *ReaperInput) (rpr *Reaper, err error) {
	var r Reaper

	if input.EC2 != nil {
		r.svcEc2 = input.EC2
	}
	if input.STS != nil {
		r.svcSts = input.STS
	}
	if r.svcEc2 == nil || r.svcSts == nil {
		if input.Session == nil {
			err = errors.New("Session is required when EC2 and STS clients are not provided")
			return &r, err
		}
		if r.svcEc2 == nil {
			r.svcEc2 = ec2.New(input.Session)
		}
		if r.svcSts == nil {
			r.svcSts = sts.New(input.Session)
		}
	}

	if input.Logger == nil {
		r.setDefaultLogger()
	} else {
		r.log = *input.Logger
	}
	return &r, err
}
