package gateway

import (
	"context"
	"fmt"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// Platform status values that signal a single-writer lock.
const (
	environmentStatusUpdating = "updating"
	pipelineStatusBusy        = "BUSY"
)

// Program is a program as listed by the platform.
type Program struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
	Enabled  bool   `json:"enabled"`
	Status   string `json:"status"`
}

// Environment is a platform environment.
type Environment struct {
	ID        int64  `json:"id"`
	ProgramID int64  `json:"programId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status"`
}

// Pipeline is a platform pipeline.
type Pipeline struct {
	ID        int64  `json:"id"`
	ProgramID int64  `json:"programId"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

type programsResponse struct {
	Embedded struct {
		Programs []Program `json:"programs"`
	} `json:"_embedded"`
}

type environmentsResponse struct {
	Embedded struct {
		Environments []Environment `json:"environments"`
	} `json:"_embedded"`
}

type pipelinesResponse struct {
	Embedded struct {
		Pipelines []Pipeline `json:"pipelines"`
	} `json:"_embedded"`
}

// Programs lists every program the credentials can see.
func (c *Client) Programs(ctx context.Context) ([]Program, error) {
	var resp programsResponse
	if err := c.do(ctx, "GET", "api/programs", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Programs, nil
}

// Environments lists the environments of a program.
func (c *Client) Environments(ctx context.Context, programID int64) ([]Environment, error) {
	var resp environmentsResponse
	path := fmt.Sprintf("api/program/%d/environments", programID)
	if err := c.do(ctx, "GET", path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Environments, nil
}

// Pipelines lists the pipelines of a program.
func (c *Client) Pipelines(ctx context.Context, programID int64) ([]Pipeline, error) {
	var resp pipelinesResponse
	path := fmt.Sprintf("api/program/%d/pipelines", programID)
	if err := c.do(ctx, "GET", path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Pipelines, nil
}

// environment fetches a single environment.
func (c *Client) environment(ctx context.Context, programID, envID int64) (*Environment, error) {
	var env Environment
	path := fmt.Sprintf("api/program/%d/environment/%d", programID, envID)
	if err := c.do(ctx, "GET", path, nil, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// pipeline fetches a single pipeline.
func (c *Client) pipeline(ctx context.Context, programID, pipelineID int64) (*Pipeline, error) {
	var p Pipeline
	path := fmt.Sprintf("api/program/%d/pipeline/%d", programID, pipelineID)
	if err := c.do(ctx, "GET", path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Readiness implements reconcile.ReadinessChecker. An environment reports
// busy while its status is "updating"; a pipeline while its status is
// "BUSY". An empty status maps to unknown, which the coordinator treats as
// busy. Programs have no single-writer lock and are always ready.
func (c *Client) Readiness(ctx context.Context, ref reconcile.ResourceRef) (reconcile.Readiness, error) {
	switch ref.Type {
	case reconcile.ResourceProgram:
		return reconcile.ReadinessReady, nil

	case reconcile.ResourceEnvironment:
		env, err := c.environment(ctx, ref.ProgramID, ref.ID)
		if err != nil {
			return reconcile.ReadinessUnknown, err
		}
		return readinessFromStatus(env.Status, environmentStatusUpdating), nil

	case reconcile.ResourcePipeline:
		p, err := c.pipeline(ctx, ref.ProgramID, ref.ID)
		if err != nil {
			return reconcile.ReadinessUnknown, err
		}
		return readinessFromStatus(p.Status, pipelineStatusBusy), nil

	default:
		return reconcile.ReadinessUnknown,
			reconcile.NewValidationError(fmt.Sprintf("unknown resource type %q", ref.Type), nil)
	}
}

func readinessFromStatus(status, busyValue string) reconcile.Readiness {
	switch status {
	case "":
		return reconcile.ReadinessUnknown
	case busyValue:
		return reconcile.ReadinessBusy
	default:
		return reconcile.ReadinessReady
	}
}
