package snapreaper

import (
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
)

// volumeNotFoundCode is the EC2 API error code returned by
// DescribeVolumes when a volume ID no longer exists in the account.
const volumeNotFoundCode = "InvalidVolume.NotFound"

// volumeLookup is the outcome of classifying a DescribeVolumes call.
// A missing volume is expected (it corroborates that the snapshot is
// orphaned) while every other failure is fatal for the pass.
type volumeLookup int

const (
	lookupOK volumeLookup = iota
	lookupNotFound
	lookupFailed
)

// classifyVolumeLookup buckets a DescribeVolumes error into one of the
// volumeLookup outcomes using the SDK's typed error code rather than
// matching on the message text.
func classifyVolumeLookup(err error) volumeLookup {
	if err == nil {
		return lookupOK
	}
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == volumeNotFoundCode {
		return lookupNotFound
	}
	return lookupFailed
}

// instanceIDSet flattens DescribeInstances reservations into a set of
// instance IDs for constant-time membership checks.
func instanceIDSet(reservations []*ec2.Reservation) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, res := range reservations {
		for _, inst := range res.Instances {
			if inst.InstanceId != nil {
				ids[*inst.InstanceId] = struct{}{}
			}
		}
	}
	return ids
}
