package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type attributed struct {
	URL string `json:"url"`
}

func (a attributed) Attributes() map[string]string {
	return map[string]string{"kind": "candidate"}
}

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishSendsJSONWithAttributes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "candidates")
	require.NoError(t, err)

	p := New(client)
	t.Cleanup(p.Stop)

	id, err := p.Publish(ctx, "candidates", attributed{URL: "https://icse.org/cfr"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{"url":"https://icse.org/cfr"}`, string(msgs[0].Data))
	require.Equal(t, "candidate", msgs[0].Attributes["kind"])
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := New(nil).Publish(ctx, "t", "x")
	require.ErrorContains(t, err, "not configured")

	client, _ := newTestClient(t)
	p := New(client)
	t.Cleanup(p.Stop)

	_, err = p.Publish(ctx, "", "x")
	require.ErrorContains(t, err, "topic")
	_, err = p.Publish(ctx, "t", func() {})
	require.ErrorContains(t, err, "marshal")
	_, err = p.Publish(ctx, "missing-topic", "x")
	require.ErrorContains(t, err, "publish message")
}
