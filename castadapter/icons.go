package castadapter

// ArtURL resolves artwork for the current media: the media's own image
// first, then the receiver application's icon, then a previously cached
// icon that still matches the running application and title, and
// finally the installed fallback artwork.
func (a *Adapter) ArtURL() string {
	if icon := a.deviceIcon(); icon != "" {
		return icon
	}
	return a.defaultIcon()
}

func (a *Adapter) deviceIcon() string {
	if status := a.dev.MediaStatus(); status != nil {
		if images := status.Metadata.Images; len(images) > 0 {
			url := images[0].URL
			a.setCachedIcon(url)
			return url
		}
	}

	if status := a.dev.CastStatus(); status != nil && status.App != nil && status.App.IconURL != "" {
		url := status.App.IconURL
		a.setCachedIcon(url)
		return url
	}

	return a.cachedIconURL()
}

// setCachedIcon remembers url together with the application and title it
// belongs to. An empty url drops the cache entry.
func (a *Adapter) setCachedIcon(url string) {
	if url == "" {
		a.mu.Lock()
		a.cached = nil
		a.mu.Unlock()
		return
	}

	appID := a.dev.AppID()
	title := a.Titles().Title

	a.mu.Lock()
	a.cached = &cachedIcon{url: url, appID: appID, title: title}
	a.mu.Unlock()
}

// cachedIconURL returns the cached icon url, but only while the device
// still runs the application and title the icon was cached for.
func (a *Adapter) cachedIconURL() string {
	appID := a.dev.AppID()
	title := a.Titles().Title

	a.mu.Lock()
	defer a.mu.Unlock()

	icon := a.cached
	if icon == nil || icon.url == "" {
		return ""
	}
	if icon.appID != appID || icon.title != title {
		return ""
	}

	return icon.url
}

func (a *Adapter) defaultIcon() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lightIcon {
		return a.lightIconPath
	}
	return a.darkIconPath
}

// SetLightIcon switches the fallback artwork between the light and dark
// variants.
func (a *Adapter) SetLightIcon(light bool) {
	a.mu.Lock()
	a.lightIcon = light
	a.mu.Unlock()
}
