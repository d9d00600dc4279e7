// Package render rasterizes pages, either in one blocking call or as a
// progressive session that yields back to the caller.
//
// A session moves Ready -> InProgress -> Done or Failed. The engine polls a
// pause predicate while it works; when the predicate returns true the call
// returns ToBeContinued and the caller resumes later:
//
//	s, st, err := render.Start(bmp, page, render.Options{}, render.PauseEvery(4))
//	for err == nil && st == native.RenderToBeContinued {
//	    // other work
//	    st, err = s.Continue(render.PauseEvery(4))
//	}
//	s.Close()
//
// Everything runs on the caller's goroutine; there is no worker. The engine
// keeps progress per page, so a page has at most one open session, and the
// session is closed before its page.
package render
