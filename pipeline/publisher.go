package pipeline

import (
	"context"

	"bitbucket.org/kleinnic74/photopost/bluesky"
	"bitbucket.org/kleinnic74/photopost/domain"
	"bitbucket.org/kleinnic74/photopost/post"
	"bitbucket.org/kleinnic74/photopost/retry"
)

// blueskyPublisher publishes through an authenticated bluesky.Client,
// retrying transient failures under a bounded backoff policy.
type blueskyPublisher struct {
	client *bluesky.Client
	policy retry.Policy
}

func NewBlueskyPublisher(client *bluesky.Client) Publisher {
	return &blueskyPublisher{
		client: client,
		policy: retry.DefaultPolicy,
	}
}

func (p *blueskyPublisher) Publish(ctx context.Context, composed post.ComposedPost, img *domain.UploadImage) (PostID, error) {
	var blob *bluesky.BlobRef
	err := retry.Do(ctx, p.policy, bluesky.IsRetryable, func(ctx context.Context) error {
		var err error
		blob, err = p.client.UploadBlob(ctx, img.Data, img.Mime)
		return err
	})
	if err != nil {
		return PostID{}, err
	}

	images := []bluesky.Image{{
		Alt:  composed.Alt,
		Blob: blob,
		AspectRatio: &bluesky.AspectRatio{
			Width:  img.Width,
			Height: img.Height,
		},
	}}

	var ref bluesky.PostRef
	err = retry.Do(ctx, p.policy, bluesky.IsRetryable, func(ctx context.Context) error {
		var err error
		ref, err = p.client.Publish(ctx, composed.Text, images)
		return err
	})
	if err != nil {
		return PostID{}, err
	}
	return PostID{
		URI:  ref.URI,
		Link: ref.WebLink(p.client.Handle()),
	}, nil
}
