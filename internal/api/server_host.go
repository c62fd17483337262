package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/navshell/internal/controller"
	"github.com/dgnsrekt/navshell/internal/events"
)

func registerHostHandlers(api huma.API, svc Service) {
	type pendingOutput struct {
		Body events.Pending
	}
	huma.Register(api, huma.Operation{OperationID: "list-pending", Method: http.MethodGet, Path: "/api/v1/pending", Summary: "List unresolved dialog and chooser tokens", Tags: []string{"Host UI"}},
		func(ctx context.Context, input *struct{}) (*pendingOutput, error) {
			return &pendingOutput{Body: svc.Pending()}, nil
		})

	type appsOutput struct {
		Body struct {
			Apps []controller.AppInfo `json:"apps"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-apps", Method: http.MethodGet, Path: "/api/v1/apps", Summary: "List configured native applications", Description: "installed is false when the configured executable does not resolve.", Tags: []string{"Host UI"}},
		func(ctx context.Context, input *struct{}) (*appsOutput, error) {
			list, err := svc.ListApps(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &appsOutput{}
			out.Body.Apps = list
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "resolve-dialog", Method: http.MethodPost, Path: "/api/v1/dialogs/{token}", Summary: "Complete a JS alert", Description: "Each token resolves exactly once; a second call returns 404.", Tags: []string{"Host UI"}},
		func(ctx context.Context, input *struct {
			Token string `path:"token"`
			Body  struct {
				Accept     bool   `json:"accept" doc:"Confirm (true) or dismiss (false)"`
				PromptText string `json:"prompt_text,omitempty" doc:"Answer for prompt dialogs"`
			}
		}) (*statusOutput, error) {
			if err := svc.ResolveDialog(ctx, input.Token, input.Body.Accept, input.Body.PromptText); err != nil {
				return nil, mapErr(err)
			}
			return newStatus("resolved"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "resolve-chooser", Method: http.MethodPost, Path: "/api/v1/choosers/{token}", Summary: "Complete a file chooser", Description: "An empty file list cancels the chooser.", Tags: []string{"Host UI"}},
		func(ctx context.Context, input *struct {
			Token string `path:"token"`
			Body  struct {
				Files []string `json:"files,omitempty" doc:"Absolute paths to hand to the page"`
			}
		}) (*statusOutput, error) {
			if err := svc.ResolveChooser(ctx, input.Token, input.Body.Files); err != nil {
				return nil, mapErr(err)
			}
			return newStatus("resolved"), nil
		})
}
