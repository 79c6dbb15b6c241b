package cluster

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v4"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

const managementScope = "https://management.azure.com/.default"

type AKSConfig struct {
	SubscriptionID string
	ResourceGroup  string
	ClusterName    string
	TenantID       string
	ClientID       string
	ClientSecret   string
}

func (c AKSConfig) validate() error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"subscription_id", c.SubscriptionID},
		{"resource_group", c.ResourceGroup},
		{"name", c.ClusterName},
		{"tenant_id", c.TenantID},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.Configuration("cluster.NewAKSController", fmt.Sprintf("missing cluster fields %v", missing), nil)
	}
	return nil
}

// AKSController talks to Azure Resource Manager with a service principal.
// SDK-level retries are disabled: a failed call aborts the cycle.
type AKSController struct {
	config     AKSConfig
	// credential stands in for the service principal when set
	credential azcore.TokenCredential
	options    *arm.ClientOptions
}

func NewAKSController(cfg AKSConfig) (*AKSController, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &AKSController{
		config: cfg,
		options: &arm.ClientOptions{
			ClientOptions: policy.ClientOptions{
				Retry: policy.RetryOptions{MaxRetries: -1},
			},
		},
	}, nil
}

func (c *AKSController) Authenticate(ctx context.Context) (Session, error) {
	const op = "cluster.Authenticate"

	credential := c.credential
	if credential == nil {
		cred, err := azidentity.NewClientSecretCredential(
			c.config.TenantID, c.config.ClientID, c.config.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: c.options.ClientOptions},
		)
		if err != nil {
			return nil, apperrors.Authentication(op, "invalid service principal", err)
		}
		credential = cred
	}

	// The credential is lazy; request a token now so bad secrets fail here
	if _, err := credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}}); err != nil {
		return nil, apperrors.Authentication(op, "service principal token request failed", err)
	}

	clusters, err := armcontainerservice.NewManagedClustersClient(c.config.SubscriptionID, credential, c.options)
	if err != nil {
		return nil, apperrors.Authentication(op, "create managed clusters client", err)
	}
	pools, err := armcontainerservice.NewAgentPoolsClient(c.config.SubscriptionID, credential, c.options)
	if err != nil {
		return nil, apperrors.Authentication(op, "create agent pools client", err)
	}

	logger.FromContext(ctx).Debugf("Authenticated to Azure Resource Manager for cluster %s", c.config.ClusterName)

	return &aksSession{
		config:   c.config,
		clusters: clusters,
		pools:    pools,
	}, nil
}

type aksSession struct {
	config   AKSConfig
	clusters *armcontainerservice.ManagedClustersClient
	pools    *armcontainerservice.AgentPoolsClient
}

func (s *aksSession) ClusterState(ctx context.Context) (*models.ClusterState, error) {
	const op = "cluster.ClusterState"

	resp, err := s.clusters.Get(ctx, s.config.ResourceGroup, s.config.ClusterName, nil)
	if err != nil {
		return nil, apperrors.ClusterState(op, describeARMError(err, "cluster "+s.config.ClusterName), err)
	}

	name, count, err := firstAgentPool(resp.ManagedCluster)
	if err != nil {
		return nil, apperrors.ClusterState(op, fmt.Sprintf("cluster %s", s.config.ClusterName), err)
	}

	return &models.ClusterState{
		ClusterID: s.config.ClusterName,
		NodePool:  name,
		NodeCount: count,
	}, nil
}

func (s *aksSession) Resize(ctx context.Context, nodePool string, target int) error {
	const op = "cluster.Resize"

	if target < 0 {
		return apperrors.InvalidResult(op, fmt.Sprintf("target node count %d is negative", target), nil)
	}

	current, err := s.pools.Get(ctx, s.config.ResourceGroup, s.config.ClusterName, nodePool, nil)
	if err != nil {
		return apperrors.ClusterState(op, describeARMError(err, "node pool "+nodePool), err)
	}

	pool := current.AgentPool
	if pool.Properties == nil {
		pool.Properties = &armcontainerservice.ManagedClusterAgentPoolProfileProperties{}
	}
	pool.Properties.Count = to.Ptr(int32(target))

	poller, err := s.pools.BeginCreateOrUpdate(ctx, s.config.ResourceGroup, s.config.ClusterName, nodePool, pool, nil)
	if err != nil {
		return apperrors.ClusterState(op, describeARMError(err, "node pool "+nodePool), err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return apperrors.ClusterState(op, fmt.Sprintf("resize of node pool %s did not complete", nodePool), err)
	}

	logger.FromContext(ctx).WithField("node_pool", nodePool).Infof("Node pool resized to %d nodes", target)
	return nil
}

var errNoAgentPools = errors.New("no agent pool profiles")

// firstAgentPool returns the name and node count of the first agent pool profile.
func firstAgentPool(mc armcontainerservice.ManagedCluster) (string, int, error) {
	if mc.Properties == nil || len(mc.Properties.AgentPoolProfiles) == 0 {
		return "", 0, errNoAgentPools
	}

	first := mc.Properties.AgentPoolProfiles[0]
	if first == nil || first.Name == nil {
		return "", 0, errors.New("first agent pool profile has no name")
	}
	if first.Count == nil {
		return "", 0, fmt.Errorf("agent pool %s reports no node count", *first.Name)
	}
	return *first.Name, int(*first.Count), nil
}

func describeARMError(err error, subject string) string {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return subject + " not found"
		case http.StatusUnauthorized, http.StatusForbidden:
			return subject + " access denied"
		}
		return fmt.Sprintf("%s request failed with status %d", subject, respErr.StatusCode)
	}
	return subject + " request failed"
}
