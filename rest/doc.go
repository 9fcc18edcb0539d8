// Package rest turns declared REST interfaces into callable clients.
//
// An Interface declares an endpoint and its methods. Resolve merges the
// declaration with configuration sources, such as a PropertiesSource over
// "service.*" keys, into an immutable InterfaceConfig. A Factory resolves
// interfaces and returns a Client whose Invoke runs every call through the
// same fixed pipeline:
//
//	init -> global.before -> method.before -> inject[0..n-1]
//	     -> method.after -> global.after -> finalize -> send -> dispatch
//
// An interceptor returning ErrCancel vetoes the call, which then returns
// (nil, nil) without sending anything. Failed attempts go to the method's
// RetryHandler and, once it declines, to its ErrorHandler.
//
// Example:
//
//	items := rest.Interface{
//	    Name:     "ItemService",
//	    EndPoint: "https://api.example.com",
//	    Methods: []rest.Method{{
//	        Name:         "GetItem",
//	        MethodFacets: rest.MethodFacets{Path: "/items/{id}", Produces: "application/json"},
//	        Params: []rest.Param{{Type: "int", ParamFacets: rest.ParamFacets{
//	            Name: "id", Destination: rest.DestinationPath,
//	        }}},
//	        Returns: rest.Returns[Item](),
//	    }},
//	}
//
//	adapter, _ := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
//	client, err := rest.NewFactory(adapter).Build(items)
//	if err != nil {
//	    return err
//	}
//	item, err := rest.Call[Item](ctx, client, "GetItem", 42)
package rest
