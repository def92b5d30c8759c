// Package httpapi exposes the auth engine over HTTP.
//
// It is a thin translation layer: request bodies map onto engine calls and
// engine errors map onto status codes. No auth decisions are made here.
package httpapi
