package project

const (
	indexHTML = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>AI Generated App</title>
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>`

	mainTSX = `import React from 'react'
import ReactDOM from 'react-dom/client'
import App from './App'

ReactDOM.createRoot(document.getElementById('root')!).render(
  <React.StrictMode>
    <App />
  </React.StrictMode>,
)`

	appTSX = `import React from 'react'

function App() {
  return (
    <div>
      <h1>Hello, AI-generated App!</h1>
    </div>
  )
}

export default App`
)

// Scaffold returns the default entries every new project starts with
func Scaffold() []Entry {
	return []Entry{
		{Name: "index.html", Kind: KindFile, Content: indexHTML},
		{Name: "src", Kind: KindDirectory},
		{Name: "src/main.tsx", Kind: KindFile, Content: mainTSX},
		{Name: "src/App.tsx", Kind: KindFile, Content: appTSX},
	}
}

// Bootstrap creates a fresh tree from the default scaffold
func Bootstrap() *Tree {
	return NewTree(Scaffold()...)
}
