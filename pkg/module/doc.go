// Package module supplies the server side behaviour of discovered files.
//
// Go cannot import a page.js at runtime, so every role file the hierarchy
// resolver finds is paired with a Unit registered under the file's key:
//
//	reg := module.NewRegistry()
//	reg.Register("pages/blog/page.js", module.Unit{
//		Page: func(ctx context.Context, args server.Args) (render.View, error) {
//			return render.View{Body: render.Text("Blog")}, nil
//		},
//	})
//
// The files on disk still decide which routes exist and which entries get a
// client bundle. Load checks that a unit has the shape its role requires and
// returns one of the RouteModule variants.
package module
