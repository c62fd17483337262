package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/navshell/internal/controller"
	"github.com/dgnsrekt/navshell/internal/pool"
	"github.com/dgnsrekt/navshell/internal/popup"
)

func registerShellHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return newStatus("ok"), nil
		})

	type classifyOutput struct {
		Body controller.ClassifyResult
	}
	huma.Register(api, huma.Operation{OperationID: "classify", Method: http.MethodPost, Path: "/api/v1/classify", Summary: "Classify a navigation", Description: "Dry run: reports the verdict for a page moving from source_url to target_url without acting on it.", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *struct {
			Body struct {
				SourceURL string `json:"source_url,omitempty" doc:"URL currently loaded" example:"https://example.com/a"`
				TargetURL string `json:"target_url" doc:"URL the page wants to load" example:"market://details?id=com.vendor.app"`
			}
		}) (*classifyOutput, error) {
			res, err := svc.Classify(ctx, input.Body.SourceURL, input.Body.TargetURL)
			if err != nil {
				return nil, mapErr(err)
			}
			return &classifyOutput{Body: res}, nil
		})

	type instancesOutput struct {
		Body struct {
			Instances []pool.Info `json:"instances"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-instances", Method: http.MethodGet, Path: "/api/v1/instances", Summary: "List pooled instances", Tags: []string{"Instances"}},
		func(ctx context.Context, input *struct{}) (*instancesOutput, error) {
			list, err := svc.ListInstances(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &instancesOutput{}
			out.Body.Instances = list
			return out, nil
		})

	type instanceOutput struct {
		Body pool.Info
	}
	huma.Register(api, huma.Operation{OperationID: "open-instance", Method: http.MethodPut, Path: "/api/v1/instances/{tag}", Summary: "Get or create an instance", Description: "Creates the instance for tag on first use, then loads url in it.", Tags: []string{"Instances"}},
		func(ctx context.Context, input *struct {
			Tag  string `path:"tag"`
			Body struct {
				URL string `json:"url,omitempty" doc:"URL to load" example:"https://example.com/"`
			}
		}) (*instanceOutput, error) {
			info, err := svc.OpenInstance(ctx, input.Tag, input.Body.URL)
			if err != nil {
				return nil, mapErr(err)
			}
			return &instanceOutput{Body: info}, nil
		})

	type refreshOutput struct {
		Body struct {
			Tag    string `json:"tag"`
			Action string `json:"action" enum:"noop,canonical,reloaded"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "refresh-instance", Method: http.MethodPost, Path: "/api/v1/instances/{tag}/refresh", Summary: "Refresh an instance", Description: "Loads the tag's canonical URL, or reloads the current page. Unknown tags are a no-op.", Tags: []string{"Instances"}},
		func(ctx context.Context, input *tagInput) (*refreshOutput, error) {
			action, err := svc.Refresh(ctx, input.Tag)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &refreshOutput{}
			out.Body.Tag = input.Tag
			out.Body.Action = action
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-lifecycle", Method: http.MethodPost, Path: "/api/v1/lifecycle/{state}", Summary: "Pause or resume all instances", Tags: []string{"Lifecycle"}},
		func(ctx context.Context, input *struct {
			State string `path:"state" enum:"pause,resume"`
		}) (*statusOutput, error) {
			if err := svc.SetLifecycle(ctx, input.State); err != nil {
				return nil, mapErr(err)
			}
			return newStatus(input.State), nil
		})

	type popupsOutput struct {
		Body struct {
			Popups []popup.Info `json:"popups"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-popups", Method: http.MethodGet, Path: "/api/v1/popups", Summary: "List visible pop-ups", Tags: []string{"Popups"}},
		func(ctx context.Context, input *struct{}) (*popupsOutput, error) {
			list, err := svc.ListPopups(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &popupsOutput{}
			out.Body.Popups = list
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "dismiss-popup", Method: http.MethodDelete, Path: "/api/v1/popups/{id}", Summary: "Dismiss a pop-up", Tags: []string{"Popups"}},
		func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*statusOutput, error) {
			if err := svc.DismissPopup(ctx, input.ID); err != nil {
				return nil, mapErr(err)
			}
			return newStatus("dismissed"), nil
		})
}
