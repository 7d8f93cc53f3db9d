package views

const cartPanelTmpl = `{{define "cartPanel"}}{{if not .Items}}<div class="cart-empty">
	<div class="cart-empty-icon">🛒</div>
	<p>{{.EmptyText}}</p>
</div>{{else}}{{range .Items}}<div class="cart-item" data-item="{{.Id}}">
	<div class="cart-item-image"><img src="{{.Image}}" alt="{{.Name}}"></div>
	<div class="cart-item-details">
		<div class="cart-item-name">{{.Name}}</div>
		<div class="cart-item-color">Color: <strong>{{.Color}}</strong></div>
		<div class="cart-item-bottom">
			{{template "stepper" .}}
			<div class="cart-item-price">{{money .LinePrice}}</div>
			{{template "deleteButton" .}}
		</div>
	</div>
</div>
{{end}}{{end}}{{end}}`

const widgetTmpl = `{{define "stepper"}}<div class="quantity-controls">
	<form method="post" action="/cart/{{.Id}}/quantity"><input type="hidden" name="delta" value="-1"><button class="quantity-btn">−</button></form>
	<form method="post" action="/cart/{{.Id}}/quantity"><input type="number" class="quantity-input" name="value" value="{{.Quantity}}" step="1"></form>
	<form method="post" action="/cart/{{.Id}}/quantity"><input type="hidden" name="delta" value="1"><button class="quantity-btn">+</button></form>
</div>{{end}}
{{define "deleteButton"}}<form method="post" action="/cart/{{.Id}}/delete" class="delete-item-form" onsubmit="return confirm('¿Estás seguro de que quieres eliminar este ítem del carrito?')"><input type="hidden" name="confirm" value="yes"><button class="delete-item-btn" title="Eliminar">🗑</button></form>{{end}}
{{define "widget"}}<div class="card-action" data-id="{{.Key}}">{{if .Item}}<div class="quantity-control-wrapper">
	{{template "deleteButton" .Item}}
	{{template "stepper" .Item}}
</div>{{else}}<form method="post" action="/cart" class="add-to-cart-form">
	<input type="hidden" name="id" value="{{.Key}}">
	<input type="hidden" name="pieceId" value="{{.Piece.Id}}">
	<input type="hidden" name="idMolde" value="{{.Piece.IdMolde}}">
	<input type="hidden" name="idColor" value="{{.Piece.IdColor}}">
	<input type="hidden" name="name" value="{{.Piece.Name}}">
	<input type="hidden" name="color" value="{{.Piece.Color}}">
	<input type="hidden" name="price" value="{{printf "%.2f" .Piece.Price}}">
	<input type="hidden" name="image" value="{{.Piece.Image}}">
	<button class="add-to-cart-btn">{{.AddText}}</button>
</form>{{end}}</div>{{end}}`

const gridTmpl = `{{define "grid"}}{{range .}}<div class="piece-card" data-category="{{.Piece.Category}}" data-loaded="{{.Loaded}}">
	<img src="{{.Piece.Image}}" alt="{{.Piece.Name}}" loading="lazy">
	<div class="piece-name">{{.Piece.Name}}</div>
	<div class="piece-meta">ID: {{.Piece.Id}} · {{.Piece.Color}}</div>
	<div class="piece-price">{{money .Piece.Price}}</div>
	{{.Widget}}
</div>
{{end}}{{end}}`

const pageTmpl = `{{define "page"}}<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>RekuBricks</title>
</head>
<body>
<header>
	<h1>RekuBricks</h1>
	<a id="cartButton" href="#cartPanel">🛒 <span id="cartCount">{{.Count}}</span></a>
</header>
<form id="filters" method="get" action="/">
	<input type="search" name="q" value="{{.Filter.SearchTerm}}" placeholder="Buscar piezas">
	<select name="category">
		<option value="all"{{if eq .Filter.Category "all"}} selected{{end}}>Todas</option>
		{{range .Categories}}<option value="{{.}}"{{if eq $.Filter.Category .}} selected{{end}}>{{.}}</option>
		{{end}}
	</select>
	<button>Filtrar</button>
	<a href="/">Limpiar</a>
</form>
<p class="results">{{.Grid.Matching}} piezas</p>
<main id="grid">{{template "grid" .Cards}}</main>
{{if .Grid.HasMore}}<a id="loadMore" href="{{.MoreURL}}">Ver más</a>{{end}}
<aside id="cartPanel">
	<div id="cartItems">{{.Panel}}</div>
	<div class="cart-subtotal">Subtotal: <span id="subtotalAmount">{{.Subtotal}}</span></div>
	<form method="post" action="/cart/clear" onsubmit="return confirm('¿Estás seguro de que quieres vaciar el carrito?')"><input type="hidden" name="confirm" value="yes"><button id="clearCartBtn">Vaciar carrito</button></form>
	<a id="whatsappBtn" href="/cart/order" target="_blank" rel="noopener">Enviar pedido por WhatsApp</a>
</aside>
</body>
</html>{{end}}`
