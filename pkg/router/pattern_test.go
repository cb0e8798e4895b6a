package router

import (
	"reflect"
	"testing"
)

func TestMapRoute(t *testing.T) {
	tests := []struct {
		route    string
		path     string
		params   []string
		catchAll string
	}{
		{"/", "/", nil, ""},
		{"/about/", "/about", nil, ""},
		{"/app/blog/post-1/", "/app/blog/post-1", nil, ""},
		{"/blog/[id]/", "/blog/{id}", []string{"id"}, ""},
		{"/users/[userId]/posts/[postId]/", "/users/{userId}/posts/{postId}", []string{"userId", "postId"}, ""},
		{"/items/[id:int]/", "/items/{id:[0-9]+}", []string{"id"}, ""},
		{"/items/[id:unknown]/", "/items/{id}", []string{"id"}, ""},
		{"/docs/[...slug]/", "/docs/*", []string{"slug"}, "slug"},
		{"/[...all]/", "/*", []string{"all"}, "all"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			got := MapRoute(tt.route)
			if got.Path != tt.path {
				t.Errorf("Path = %q, want %q", got.Path, tt.path)
			}
			if !reflect.DeepEqual(got.Params, tt.params) {
				t.Errorf("Params = %v, want %v", got.Params, tt.params)
			}
			if got.CatchAll != tt.catchAll {
				t.Errorf("CatchAll = %q, want %q", got.CatchAll, tt.catchAll)
			}
		})
	}
}
