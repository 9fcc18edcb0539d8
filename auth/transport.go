package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/util"
)

// Transport signs each request with an Authorization before delegating to
// the next transport. The signature covers the URL query parameters and
// the parameters of any body with a registered Extractor.
type Transport struct {
	next       httpclient.Transport
	auth       Authorization
	extractors map[string]Extractor
	log        *logger.Logger
}

var _ httpclient.Transport = (*Transport)(nil)

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithExtractor registers e for a media type, replacing any default.
func WithExtractor(mediaType string, e Extractor) TransportOption {
	return func(t *Transport) {
		t.extractors[strings.ToLower(mediaType)] = e
	}
}

// WithLogger sets the transport logger.
func WithLogger(l *logger.Logger) TransportOption {
	return func(t *Transport) {
		t.log = l.WithComponent("restkit.auth")
	}
}

// NewTransport decorates next with auth. Form and multipart extractors are
// registered by default.
func NewTransport(next httpclient.Transport, auth Authorization, opts ...TransportOption) *Transport {
	t := &Transport{
		next:       next,
		auth:       auth,
		extractors: DefaultExtractors(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Authorization returns the wrapped Authorization.
func (t *Transport) Authorization() Authorization {
	return t.auth
}

func (t *Transport) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	ch, err := t.open(req)
	if err != nil {
		return nil, err
	}
	signed, err := ch.sign(ctx, t.auth)
	if err != nil {
		t.log.Debug("request signing failed", logger.Fields(
			logger.FieldHTTPMethod, req.Method(), logger.FieldURL, req.URL(), logger.FieldError, err.Error()))
		return nil, err
	}
	t.log.Debug("request signed", logger.Fields(
		logger.FieldHTTPMethod, req.Method(),
		logger.FieldURL, req.URL(),
		"authorization", util.MaskSecret(signed.HeaderValue("Authorization"), 10),
	))
	return t.next.Send(ctx, signed)
}

// channel is the per-request signing state.
type channel struct {
	req         *httpclient.Request
	params      []httpclient.Pair
	contentType string // media type without parameters
	fullType    string
	entity      *BufferedEntity
	extractor   Extractor
}

func (t *Transport) open(req *httpclient.Request) (*channel, error) {
	u, err := url.Parse(req.URL())
	if err != nil {
		return nil, errors.Signing(fmt.Errorf("parse url: %w", err))
	}
	ch := &channel{
		req:      req,
		params:   httpclient.ParsePairs(u.RawQuery, req.Encoding()),
		fullType: req.ContentType(),
	}
	ch.contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(ch.fullType, ";", 2)[0]))

	if e := req.Entity(); e != nil {
		if x, ok := t.extractors[ch.contentType]; ok {
			ch.extractor = x
			ch.entity = NewBufferedEntity(e)
		}
	}
	return ch, nil
}

func (ch *channel) sign(ctx context.Context, auth Authorization) (*httpclient.Request, error) {
	params := ch.params
	out := ch.req
	if ch.extractor != nil {
		body, err := ch.entity.Bytes()
		if err != nil {
			return nil, errors.Signing(fmt.Errorf("materialize entity: %w", err))
		}
		extracted, err := ch.extractor.Extract(ch.fullType, ch.req.Encoding(), body)
		if err != nil {
			return nil, errors.Signing(fmt.Errorf("extract %s parameters: %w", ch.contentType, err))
		}
		params = append(params[:len(params):len(params)], extracted...)
		out = out.WithEntity(ch.entity)
	}

	token, err := auth.Authorize(ctx, ch.req.Method(), ch.req.URL(), ch.req.Encoding(), params)
	if err != nil {
		var ae *errors.AppError
		if !stderrors.As(err, &ae) {
			err = errors.Signing(err)
		}
		return nil, err
	}
	return out.WithHeader("Authorization", token.String()), nil
}
