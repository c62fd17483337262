package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/navshell/internal/imagecache"
	"github.com/dgnsrekt/navshell/internal/notify"
)

func registerPushHandlers(api huma.API, svc Service) {
	type pushOutput struct {
		Body struct {
			ID string `json:"id"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "deliver-push", Method: http.MethodPost, Path: "/api/v1/push", Summary: "Deliver a push payload", Description: "Displays the notification. An image_url is downloaded in the background before display.", Tags: []string{"Push"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *struct {
			Body notify.Message
		}) (*pushOutput, error) {
			id, err := svc.Push(ctx, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &pushOutput{}
			out.Body.ID = id
			return out, nil
		})

	type recentOutput struct {
		Body struct {
			Pushes []notify.Notification `json:"pushes"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-pushes", Method: http.MethodGet, Path: "/api/v1/push", Summary: "List displayed pushes", Tags: []string{"Push"}},
		func(ctx context.Context, input *struct{}) (*recentOutput, error) {
			list, err := svc.RecentPushes(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &recentOutput{}
			out.Body.Pushes = list
			return out, nil
		})

	type openOutput struct {
		Body struct {
			Kind string `json:"kind"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "open-push", Method: http.MethodPost, Path: "/api/v1/push/{id}/open", Summary: "Open a push link in its tag", Description: "The link is classified like a page navigation from the tag's current URL.", Tags: []string{"Push"}},
		func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*openOutput, error) {
			kind, err := svc.OpenPush(ctx, input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &openOutput{}
			out.Body.Kind = kind
			return out, nil
		})

	type imagesOutput struct {
		Body struct {
			Images []imagecache.ImageMeta `json:"images"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-images", Method: http.MethodGet, Path: "/api/v1/images", Summary: "List cached push images", Tags: []string{"Push"}},
		func(ctx context.Context, input *struct{}) (*imagesOutput, error) {
			list, err := svc.ListImages(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &imagesOutput{}
			out.Body.Images = list
			return out, nil
		})

	type imageOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-image",
		Method:      http.MethodGet,
		Path:        "/api/v1/images/{image_id}",
		Summary:     "Get a cached push image",
		Tags:        []string{"Push"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Image bytes",
				Content: map[string]*huma.MediaType{
					"image/*": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *struct {
		ImageID string `path:"image_id"`
	}) (*imageOutput, error) {
		data, mime, err := svc.ReadImage(ctx, input.ImageID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &imageOutput{ContentType: mime, Body: data}, nil
	})
}
