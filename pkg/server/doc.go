// Package server holds the objects handed to application code on every
// request: the read only Request, the mutable Response accumulator and the
// process wide Server with its adapters.
//
// A Request and Response pair is created per request by the router and
// discarded when the response is sent. The Server lives for the whole
// process:
//
//	func products(ctx context.Context, args server.Args) (any, error) {
//	    db, ok := args.Server.Adapter("db")
//	    if !ok {
//	        return nil, server.InternalError(nil)
//	    }
//	    args.Response.Header().Set("Cache-Control", "no-store")
//	    return db.(*Store).Products(ctx, args.Request.Param("category"))
//	}
package server
