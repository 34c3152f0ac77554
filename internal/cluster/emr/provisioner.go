// Package emr provisions transformation clusters on Amazon EMR.
package emr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/aws/aws-sdk-go-v2/service/emr/types"

	"github.com/leapstack-labs/zonehop/internal/cluster"
)

// API is the subset of the EMR client the provisioner uses.
type API interface {
	RunJobFlow(ctx context.Context, in *emr.RunJobFlowInput, optFns ...func(*emr.Options)) (*emr.RunJobFlowOutput, error)
	DescribeCluster(ctx context.Context, in *emr.DescribeClusterInput, optFns ...func(*emr.Options)) (*emr.DescribeClusterOutput, error)
	TerminateJobFlows(ctx context.Context, in *emr.TerminateJobFlowsInput, optFns ...func(*emr.Options)) (*emr.TerminateJobFlowsOutput, error)
}

// Provisioner implements cluster.Provisioner over EMR.
type Provisioner struct {
	api    API
	logger *slog.Logger
}

// New creates a provisioner over an existing EMR API client.
func New(api API, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provisioner{api: api, logger: logger.With("component", "emr")}
}

// NewFromEnv loads AWS credentials from the default chain for region.
func NewFromEnv(ctx context.Context, region string, logger *slog.Logger) (*Provisioner, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(emr.NewFromConfig(cfg), logger), nil
}

// CreateCluster starts a cluster with Spark and Livy installed that stays
// up until terminated.
func (p *Provisioner) CreateCluster(ctx context.Context, spec cluster.Spec) (string, error) {
	out, err := p.api.RunJobFlow(ctx, runJobFlowInput(spec))
	if err != nil {
		return "", err
	}
	id := aws.ToString(out.JobFlowId)
	if id == "" {
		return "", fmt.Errorf("emr returned no cluster id")
	}
	p.logger.Debug("run job flow accepted", "cluster_id", id)
	return id, nil
}

func runJobFlowInput(spec cluster.Spec) *emr.RunJobFlowInput {
	instances := &types.JobFlowInstancesConfig{
		InstanceGroups: []types.InstanceGroupConfig{
			{
				Name:          aws.String("primary"),
				InstanceRole:  types.InstanceRoleTypeMaster,
				InstanceType:  aws.String(spec.InstanceType),
				InstanceCount: aws.Int32(1),
				Market:        types.MarketTypeOnDemand,
			},
			{
				Name:          aws.String("core"),
				InstanceRole:  types.InstanceRoleTypeCore,
				InstanceType:  aws.String(spec.InstanceType),
				InstanceCount: aws.Int32(int32(spec.WorkerCount)),
				Market:        types.MarketTypeOnDemand,
			},
		},
		KeepJobFlowAliveWhenNoSteps: aws.Bool(true),
	}
	if spec.SubnetID != "" {
		instances.Ec2SubnetId = aws.String(spec.SubnetID)
	}

	in := &emr.RunJobFlowInput{
		Name:         aws.String(spec.Name),
		ReleaseLabel: aws.String(spec.ReleaseLabel),
		Applications: []types.Application{
			{Name: aws.String("Spark")},
			{Name: aws.String("Livy")},
		},
		Instances:         instances,
		ServiceRole:       aws.String(spec.ServiceRole),
		JobFlowRole:       aws.String(spec.JobFlowRole),
		VisibleToAllUsers: aws.Bool(true),
		Tags: []types.Tag{
			{Key: aws.String("managed-by"), Value: aws.String("zonehop")},
		},
	}
	if spec.LogURI != "" {
		in.LogUri = aws.String(spec.LogURI)
	}
	return in
}

// DescribeCluster maps the EMR cluster state onto a cluster.ClusterStatus.
func (p *Provisioner) DescribeCluster(ctx context.Context, clusterID string) (cluster.ClusterStatus, error) {
	out, err := p.api.DescribeCluster(ctx, &emr.DescribeClusterInput{ClusterId: aws.String(clusterID)})
	if err != nil {
		return cluster.ClusterStatus{}, err
	}
	if out.Cluster == nil || out.Cluster.Status == nil {
		return cluster.ClusterStatus{}, fmt.Errorf("emr returned no status for %s", clusterID)
	}

	c := out.Cluster
	st := cluster.ClusterStatus{Address: aws.ToString(c.MasterPublicDnsName)}
	if r := c.Status.StateChangeReason; r != nil {
		st.Reason = string(r.Code)
		if msg := aws.ToString(r.Message); msg != "" {
			st.Reason += ": " + msg
		}
	}

	switch c.Status.State {
	case types.ClusterStateWaiting, types.ClusterStateRunning:
		st.Phase = cluster.ClusterReady
	case types.ClusterStateTerminating, types.ClusterStateTerminated, types.ClusterStateTerminatedWithErrors:
		st.Phase = cluster.ClusterTerminated
	default:
		st.Phase = cluster.ClusterStarting
	}
	return st, nil
}

// TerminateCluster terminates the cluster.
func (p *Provisioner) TerminateCluster(ctx context.Context, clusterID string) error {
	_, err := p.api.TerminateJobFlows(ctx, &emr.TerminateJobFlowsInput{JobFlowIds: []string{clusterID}})
	return err
}

var _ cluster.Provisioner = (*Provisioner)(nil)
